package store

import (
	"errors"
	"fmt"
	"sync"

	"chainlab/blockchain"
)

var (
	ErrBlockNotFound    = errors.New("block not found")
	ErrIndexMismatch    = errors.New("block index does not extend the chain")
	ErrDuplicatePending = errors.New("transaction already pending")
)

type MemoryChainStore struct {
	blocks  []*blockchain.Block
	pending []blockchain.Transaction
	mu      sync.RWMutex
}

func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{
		blocks:  make([]*blockchain.Block, 0),
		pending: make([]blockchain.Transaction, 0),
	}
}

// AddBlock appends block at the tip. Its index must equal the current
// height; validity is the caller's concern.
func (m *MemoryChainStore) AddBlock(block *blockchain.Block) error {
	if block == nil {
		return errors.New("block is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if block.Index != uint64(len(m.blocks)) {
		return fmt.Errorf("%w: got index %d, height is %d", ErrIndexMismatch, block.Index, len(m.blocks))
	}
	m.blocks = append(m.blocks, block.Clone())
	return nil
}

// ReplaceBlock overwrites the block stored at block.Index
func (m *MemoryChainStore) ReplaceBlock(block *blockchain.Block) error {
	if block == nil {
		return errors.New("block is nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if block.Index >= uint64(len(m.blocks)) {
		return fmt.Errorf("%w: index %d", ErrBlockNotFound, block.Index)
	}
	m.blocks[block.Index] = block.Clone()
	return nil
}

// ReplaceChain atomically swaps the whole block sequence, e.g. after a
// revalidation pass produced new IsValid flags
func (m *MemoryChainStore) ReplaceChain(blocks []*blockchain.Block) error {
	for i, b := range blocks {
		if b == nil {
			return fmt.Errorf("block %d is nil", i)
		}
		if b.Index != uint64(i) {
			return fmt.Errorf("%w: position %d holds index %d", ErrIndexMismatch, i, b.Index)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = blockchain.CloneBlocks(blocks)
	return nil
}

func (m *MemoryChainStore) AddPending(tx blockchain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pending {
		if p.ID == tx.ID {
			return fmt.Errorf("%w: %s", ErrDuplicatePending, tx.ID)
		}
	}
	m.pending = append(m.pending, tx)
	return nil
}

// RemovePending drops the transactions with the given ids, keeping the order
// of the rest. Unknown ids are ignored.
func (m *MemoryChainStore) RemovePending(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.pending[:0]
	removed := 0
	for _, tx := range m.pending {
		if _, ok := drop[tx.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, tx)
	}
	m.pending = kept
	return removed
}

// Reset empties both the chain and the mempool
func (m *MemoryChainStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = make([]*blockchain.Block, 0)
	m.pending = make([]blockchain.Transaction, 0)
}

func (m *MemoryChainStore) GetBlock(index uint64) (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if index >= uint64(len(m.blocks)) {
		return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
	}
	return m.blocks[index].Clone(), nil
}

func (m *MemoryChainStore) GetHeadBlock() (*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Not returning an err as nil checks on this is valid
	if len(m.blocks) < 1 {
		return nil, nil
	}

	return m.blocks[len(m.blocks)-1].Clone(), nil
}

func (m *MemoryChainStore) GetChainHeight() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.blocks)), nil
}

func (m *MemoryChainStore) GetBlocks() ([]*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return blockchain.CloneBlocks(m.blocks), nil
}

func (m *MemoryChainStore) GetPending() ([]blockchain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return blockchain.CloneTransactions(m.pending), nil
}

// OldestPending returns up to n transactions in submission order
func (m *MemoryChainStore) OldestPending(n int) ([]blockchain.Transaction, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid batch size %d", n)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.pending) {
		n = len(m.pending)
	}
	return blockchain.CloneTransactions(m.pending[:n]), nil
}
