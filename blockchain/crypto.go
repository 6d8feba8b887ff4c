package blockchain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"

	"golang.org/x/crypto/sha3"
)

const (
	HashSHA256  = "sha256"
	HashSHA3256 = "sha3-256"
)

// Hasher maps a canonical block payload to a 64 character lowercase hex digest
type Hasher struct {
	name string
	new  func() hash.Hash
}

var (
	SHA256  = Hasher{name: HashSHA256, new: sha256.New}
	SHA3256 = Hasher{name: HashSHA3256, new: sha3.New256}
)

// DefaultHasher is used whenever no algorithm is configured
var DefaultHasher = SHA256

// HasherByName resolves a configured algorithm name
func HasherByName(name string) (Hasher, error) {
	switch name {
	case "", HashSHA256:
		return SHA256, nil
	case HashSHA3256:
		return SHA3256, nil
	default:
		return Hasher{}, fmt.Errorf("unknown hash algorithm %q", name)
	}
}

func (h Hasher) Name() string {
	if h.new == nil {
		return DefaultHasher.name
	}
	return h.name
}

func (h Hasher) hash() hash.Hash {
	if h.new == nil {
		return DefaultHasher.new()
	}
	return h.new()
}

// Digest hashes an arbitrary payload
func (h Hasher) Digest(payload []byte) string {
	d := h.hash()
	d.Write(payload)
	return hex.EncodeToString(d.Sum(nil))
}

func uint64ToBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func writeLengthPrefixed(buf []byte, data []byte) []byte {
	buf = append(buf, uint64ToBytes(uint64(len(data)))...)
	return append(buf, data...)
}

// payloadPrefix serializes every canonical field except the nonce, in fixed
// order: index, timestamp, transactions, previous hash.
func payloadPrefix(tmpl *BlockTemplate) []byte {
	txs := tmpl.Transactions
	if txs == nil {
		txs = []Transaction{}
	}
	// Struct field order fixes the key order; float formatting is locale free.
	txData, err := json.Marshal(txs)
	if err != nil {
		// Only NaN/Inf amounts can fail here and those never pass the boundary.
		txData = []byte(fmt.Sprintf("%v", txs))
	}

	buf := make([]byte, 0, 16+8+len(txData)+8+len(tmpl.PreviousHash)+8)
	buf = append(buf, uint64ToBytes(tmpl.Index)...)
	buf = append(buf, uint64ToBytes(uint64(tmpl.Timestamp))...)
	buf = writeLengthPrefixed(buf, txData)
	buf = writeLengthPrefixed(buf, []byte(tmpl.PreviousHash))
	return buf
}

// CanonicalPayload returns the exact bytes hashed for a block
func CanonicalPayload(block *Block) []byte {
	tmpl := BlockTemplate{
		Index:        block.Index,
		Timestamp:    block.Timestamp,
		Transactions: block.Transactions,
		PreviousHash: block.PreviousHash,
	}
	return append(payloadPrefix(&tmpl), uint64ToBytes(block.Nonce)...)
}

// HashBlock recomputes the digest of a block's own fields
func HashBlock(h Hasher, block *Block) string {
	return h.Digest(CanonicalPayload(block))
}

// FormatHash shortens a digest for display: first and last n characters
func FormatHash(hash string, n int) string {
	if n <= 0 || len(hash) <= n*2 {
		return hash
	}
	return hash[:n] + "..." + hash[len(hash)-n:]
}
