package blockchain

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

type NonceType = uint64

// DefaultProgressStride is how many attempts pass between progress reports
const DefaultProgressStride = 100

// ErrMiningCancelled is returned when the search was stopped before a nonce
// was found. It is an outcome, not a failure.
var ErrMiningCancelled = errors.New("mining cancelled")

// Progress is reported to observers while the search is running
type Progress struct {
	Nonce    NonceType
	Hash     string
	Attempts uint64
}

// ProgressFunc must return quickly; it runs on the mining goroutine
type ProgressFunc func(Progress)

type MiningResult struct {
	Nonce    NonceType
	Hash     string
	Attempts uint64
	Elapsed  time.Duration
}

// HashRate returns hashes per second for the finished search
func (r MiningResult) HashRate() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(r.Attempts) / secs
}

// Miner runs a single, ordered nonce search starting at zero
type Miner struct {
	Hasher Hasher
	Stride uint64
}

func NewMiner(h Hasher) *Miner {
	return &Miner{Hasher: h, Stride: DefaultProgressStride}
}

func (m *Miner) stride() uint64 {
	if m.Stride == 0 {
		return DefaultProgressStride
	}
	return m.Stride
}

// Mine searches for the lowest nonce whose digest meets difficulty.
// Cancellation is checked on every attempt and the goroutine yields to the
// scheduler once per stride.
func (m *Miner) Mine(ctx context.Context, tmpl BlockTemplate, difficulty int, onProgress ProgressFunc) (MiningResult, error) {
	if err := ValidateDifficulty(difficulty); err != nil {
		return MiningResult{}, err
	}

	start := time.Now()
	stride := m.stride()
	prefix := payloadPrefix(&tmpl)
	payload := make([]byte, len(prefix)+8)
	copy(payload, prefix)
	nonceBytes := payload[len(prefix):]

	var attempts uint64
	for nonce := NonceType(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return MiningResult{}, fmt.Errorf("%w: %w", ErrMiningCancelled, context.Cause(ctx))
		default:
		}

		copy(nonceBytes, uint64ToBytes(nonce))
		hash := m.Hasher.Digest(payload)
		attempts++

		if HashMeetsDifficulty(hash, difficulty) {
			return MiningResult{
				Nonce:    nonce,
				Hash:     hash,
				Attempts: attempts,
				Elapsed:  time.Since(start),
			}, nil
		}

		if nonce%stride == 0 {
			if onProgress != nil {
				onProgress(Progress{Nonce: nonce, Hash: hash, Attempts: attempts})
			}
			runtime.Gosched()
		}
	}
}

// MineBlock is a convenience wrapper returning a complete, valid block
func (m *Miner) MineBlock(ctx context.Context, tmpl BlockTemplate, difficulty int, onProgress ProgressFunc) (*Block, MiningResult, error) {
	res, err := m.Mine(ctx, tmpl, difficulty, onProgress)
	if err != nil {
		return nil, res, err
	}
	return &Block{
		Index:        tmpl.Index,
		Timestamp:    tmpl.Timestamp,
		Transactions: cloneTransactions(tmpl.Transactions),
		PreviousHash: tmpl.PreviousHash,
		Nonce:        res.Nonce,
		Hash:         res.Hash,
		IsValid:      true,
	}, res, nil
}
