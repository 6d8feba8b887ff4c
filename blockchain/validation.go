package blockchain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnknownVerdict = errors.New("unknown verdict")

	ErrEmptySender   = errors.New("sender is required")
	ErrEmptyReceiver = errors.New("receiver is required")
	ErrInvalidAmount = errors.New("amount must be a positive number")
)

// ValidateTransactionFields is the boundary check applied before a
// transaction enters the mempool
func ValidateTransactionFields(sender, receiver string, amount float64) error {
	if strings.TrimSpace(sender) == "" {
		return ErrEmptySender
	}
	if strings.TrimSpace(receiver) == "" {
		return ErrEmptyReceiver
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}
	return nil
}

// Verdict explains why a block is or is not valid
type Verdict int

const (
	VerdictValid Verdict = iota
	VerdictHashMismatch
	VerdictBrokenLink
	VerdictInvalidPredecessor
)

func (v Verdict) String() string {
	switch v {
	case VerdictValid:
		return "valid"
	case VerdictHashMismatch:
		return "hash mismatch"
	case VerdictBrokenLink:
		return "broken link"
	case VerdictInvalidPredecessor:
		return "invalid predecessor"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	for _, candidate := range []Verdict{VerdictValid, VerdictHashMismatch, VerdictBrokenLink, VerdictInvalidPredecessor} {
		if string(text) == candidate.String() {
			*v = candidate
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownVerdict, text)
}

// CheckBlock decides validity of one block given its predecessor. prev is
// nil for the block at position 0.
func CheckBlock(h Hasher, block, prev *Block, prevValid bool) Verdict {
	if HashBlock(h, block) != block.Hash {
		return VerdictHashMismatch
	}
	if prev == nil {
		return VerdictValid
	}
	if block.PreviousHash != prev.Hash {
		return VerdictBrokenLink
	}
	if !prevValid {
		return VerdictInvalidPredecessor
	}
	return VerdictValid
}

// Revalidate returns a copy of blocks with IsValid recomputed in index
// order. A break anywhere poisons every later block. Running it twice gives
// the same assignment as running it once.
func Revalidate(h Hasher, blocks []*Block) []*Block {
	out := CloneBlocks(blocks)
	var prev *Block
	prevValid := true
	for _, b := range out {
		b.IsValid = CheckBlock(h, b, prev, prevValid) == VerdictValid
		prev, prevValid = b, b.IsValid
	}
	return out
}

// Relink returns a copy of blocks where every block from index from on
// points at its predecessor's current hash. Hashes are not recomputed, so a
// block whose link changed fails on its own hash until it is mined again.
func Relink(blocks []*Block, from uint64) []*Block {
	out := CloneBlocks(blocks)
	for i := max(from, 1); i < uint64(len(out)); i++ {
		out[i].PreviousHash = out[i-1].Hash
	}
	return out
}

type ValidationReport struct {
	Valid bool `json:"valid"`
	// FirstInvalid is -1 when the whole chain is valid
	FirstInvalid int     `json:"first_invalid"`
	Reason       Verdict `json:"reason"`
	InvalidCount int     `json:"invalid_count"`
}

// Report walks the chain like Revalidate and summarises the first failure
func Report(h Hasher, blocks []*Block) ValidationReport {
	report := ValidationReport{Valid: true, FirstInvalid: -1}
	var prev *Block
	prevValid := true
	for i, b := range blocks {
		v := CheckBlock(h, b, prev, prevValid)
		if v != VerdictValid {
			if report.Valid {
				report.Valid = false
				report.FirstInvalid = i
				report.Reason = v
			}
			report.InvalidCount++
		}
		prev, prevValid = b, v == VerdictValid
	}
	return report
}
