package store

import (
	"chainlab/blockchain"
)

// ChainStore holds the ordered block sequence and the mempool. Reads return
// copies; callers never alias stored blocks.
type ChainStore interface {

	// Update/Add/Put
	AddBlock(block *blockchain.Block) error
	ReplaceBlock(block *blockchain.Block) error
	ReplaceChain(blocks []*blockchain.Block) error
	AddPending(tx blockchain.Transaction) error
	RemovePending(ids ...string) int
	Reset()

	// Getters
	GetBlock(index uint64) (*blockchain.Block, error)
	GetHeadBlock() (*blockchain.Block, error)
	GetChainHeight() (uint64, error)
	GetBlocks() ([]*blockchain.Block, error)
	GetPending() ([]blockchain.Transaction, error)
	OldestPending(n int) ([]blockchain.Transaction, error)
}
