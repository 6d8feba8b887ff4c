package blockchain

import (
	"context"
	"fmt"
)

// NewGenesisBlock mines the first block of a chain. It carries no
// transactions and links to ZeroHash.
func NewGenesisBlock(h Hasher, timestamp int64) (*Block, error) {
	tmpl := BlockTemplate{
		Index:        0,
		Timestamp:    timestamp,
		Transactions: []Transaction{},
		PreviousHash: ZeroHash,
	}

	// Nothing can cancel this search; at GenesisDifficulty it ends within a few dozen nonces
	block, _, err := NewMiner(h).MineBlock(context.Background(), tmpl, GenesisDifficulty, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to mine genesis block: %w", err)
	}
	return block, nil
}
