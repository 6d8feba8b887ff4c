package blockchain

import "strings"

const (
	// HashLength is the number of hex characters in a block digest
	HashLength = 64

	// BatchSize is the default number of mempool transactions mined into one block
	BatchSize = 5
)

// ZeroHash is the previous hash of the genesis block
var ZeroHash = strings.Repeat("0", HashLength)

type Transaction struct {
	ID        string  `json:"id"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
}

// BlockTemplate holds the fields of a block that are fixed before mining starts
type BlockTemplate struct {
	Index        uint64
	Timestamp    int64
	Transactions []Transaction
	PreviousHash string
}

type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PreviousHash string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
	IsValid      bool          `json:"is_valid"`
}

// Template returns the block fields the miner searches a nonce for
func (b *Block) Template() BlockTemplate {
	return BlockTemplate{
		Index:        b.Index,
		Timestamp:    b.Timestamp,
		Transactions: cloneTransactions(b.Transactions),
		PreviousHash: b.PreviousHash,
	}
}

// Clone returns a deep copy so callers never share the transaction slice
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	out := *b
	out.Transactions = cloneTransactions(b.Transactions)
	return &out
}

// WithTransactions returns a copy of the block carrying txs instead of its
// own list. Hash and nonce are left untouched.
func (b *Block) WithTransactions(txs []Transaction) *Block {
	out := b.Clone()
	out.Transactions = cloneTransactions(txs)
	return out
}

// IsGenesis reports whether the block sits at the root of the chain
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

func cloneTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out
}

// CloneBlocks deep-copies an ordered block sequence
func CloneBlocks(blocks []*Block) []*Block {
	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// CloneTransactions copies a transaction list. Transactions are values, so a
// shallow copy of the slice is enough.
func CloneTransactions(txs []Transaction) []Transaction {
	return cloneTransactions(txs)
}
