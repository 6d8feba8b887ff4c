package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chainlab/blockchain"
	"chainlab/blockchain/store"
)

// Engine owns the chain and the mempool. Every mutation goes through its
// mutex; mining runs outside the lock and commits back through it.
type Engine struct {
	// Core blockchain storage
	store store.ChainStore

	config Config
	hasher blockchain.Hasher
	logger *zap.Logger
	events *EventBroker
	now    func() time.Time

	mu         sync.Mutex
	difficulty int
	// generation changes on every reset; work started under an older
	// generation is discarded
	generation uint64
	mining     MiningState
	cancel     context.CancelCauseFunc
	revalidate *time.Timer
	closed     bool
}

// Snapshot is a consistent, deep-copied view for rendering. Valid reflects
// the stored IsValid flags, not a fresh validation pass.
type Snapshot struct {
	Blocks        []*blockchain.Block      `json:"blocks"`
	Mempool       []blockchain.Transaction `json:"mempool"`
	Difficulty    int                      `json:"difficulty"`
	Mining        MiningState              `json:"mining"`
	Valid         bool                     `json:"valid"`
	HashAlgorithm string                   `json:"hash_algorithm"`
}

// New creates an engine backed by an in-memory store and mines its genesis block
func New(config Config, logger *zap.Logger) (*Engine, error) {
	return NewWithStore(config, store.NewMemoryChainStore(), logger)
}

func NewWithStore(config Config, chainStore store.ChainStore, logger *zap.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	hasher, err := blockchain.HasherByName(config.HashAlgorithm)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		store:      chainStore,
		config:     config,
		hasher:     hasher,
		logger:     logger.Named("engine"),
		events:     NewEventBroker(config.EventBuffer),
		now:        config.clock(),
		difficulty: config.Difficulty,
	}
	if err := e.Initialize(); err != nil {
		return nil, err
	}
	return e, nil
}

// Initialize replaces whatever the store holds with a fresh genesis block
// and an empty mempool
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.initializeLocked()
}

func (e *Engine) initializeLocked() error {
	genesis, err := blockchain.NewGenesisBlock(e.hasher, blockchain.NowMillis(e.now()))
	if err != nil {
		return err
	}

	e.store.Reset()
	if err := e.store.AddBlock(genesis); err != nil {
		return fmt.Errorf("failed to add genesis block: %w", err)
	}

	e.logger.Info("genesis block created",
		zap.String("hash", blockchain.FormatHash(genesis.Hash, 8)),
		zap.Uint64("nonce", genesis.Nonce),
		zap.String("algorithm", e.hasher.Name()))
	e.publishLocked(Event{Type: EventGenesisCreated, Index: indexPtr(0), Hash: genesis.Hash, Nonce: genesis.Nonce})
	return nil
}

// SubmitTransaction validates the fields and appends a new transaction to
// the mempool
func (e *Engine) SubmitTransaction(sender, receiver string, amount float64) (blockchain.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := blockchain.NewTransaction(sender, receiver, amount, e.now())
	if err != nil {
		e.logger.Debug("transaction rejected", zap.Error(err))
		return blockchain.Transaction{}, err
	}
	if err := e.store.AddPending(tx); err != nil {
		return blockchain.Transaction{}, err
	}

	e.logger.Info("transaction added",
		zap.String("id", tx.ID),
		zap.String("sender", tx.Sender),
		zap.String("receiver", tx.Receiver),
		zap.Float64("amount", tx.Amount))
	e.publishLocked(Event{Type: EventTransactionAdded, TransactionID: tx.ID})
	return tx, nil
}

// RemoveTransaction drops a pending transaction; unknown ids are a no-op
func (e *Engine) RemoveTransaction(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.RemovePending(id) == 0 {
		return false
	}
	e.logger.Info("transaction removed", zap.String("id", id))
	e.publishLocked(Event{Type: EventTransactionRemoved, TransactionID: id})
	return true
}

// BlockChanges lists the fields a tamper overwrites; nil fields are kept.
// The block hash is never recomputed.
type BlockChanges struct {
	Transactions *[]blockchain.Transaction `json:"transactions,omitempty"`
	Timestamp    *int64                    `json:"timestamp,omitempty"`
	Nonce        *uint64                   `json:"nonce,omitempty"`
	PreviousHash *string                   `json:"previous_hash,omitempty"`
	Hash         *string                   `json:"hash,omitempty"`
}

func (c BlockChanges) apply(block *blockchain.Block) *blockchain.Block {
	out := block.Clone()
	if c.Transactions != nil {
		out = out.WithTransactions(*c.Transactions)
	}
	if c.Timestamp != nil {
		out.Timestamp = *c.Timestamp
	}
	if c.Nonce != nil {
		out.Nonce = *c.Nonce
	}
	if c.PreviousHash != nil {
		out.PreviousHash = *c.PreviousHash
	}
	if c.Hash != nil {
		out.Hash = *c.Hash
	}
	return out
}

// TamperBlock overwrites fields of a stored block without rehashing it,
// then schedules a validation pass
func (e *Engine) TamperBlock(index uint64, changes BlockChanges) (*blockchain.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	block, err := e.blockLocked(index)
	if err != nil {
		return nil, err
	}
	return e.tamperLocked(block, changes)
}

// EditTransaction tampers with a single transaction of a block. The block
// gets a new transaction list; the original transaction value is untouched.
func (e *Engine) EditTransaction(index uint64, txIndex int, edit blockchain.TransactionEdit) (*blockchain.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	block, err := e.blockLocked(index)
	if err != nil {
		return nil, err
	}
	if txIndex < 0 || txIndex >= len(block.Transactions) {
		return nil, fmt.Errorf("%w: block %d has %d transactions, got %d", ErrTransactionIndex, index, len(block.Transactions), txIndex)
	}

	txs := blockchain.CloneTransactions(block.Transactions)
	txs[txIndex] = edit.Apply(txs[txIndex])
	return e.tamperLocked(block, BlockChanges{Transactions: &txs})
}

func (e *Engine) tamperLocked(block *blockchain.Block, changes BlockChanges) (*blockchain.Block, error) {
	tampered := changes.apply(block)
	if err := e.store.ReplaceBlock(tampered); err != nil {
		return nil, err
	}

	e.logger.Info("block tampered",
		zap.Uint64("index", tampered.Index),
		zap.String("stored_hash", blockchain.FormatHash(tampered.Hash, 8)))
	e.publishLocked(Event{Type: EventBlockTampered, Index: indexPtr(tampered.Index), Hash: tampered.Hash})
	e.scheduleRevalidationLocked()

	return e.blockLocked(tampered.Index)
}

// RevalidateChain recomputes IsValid for every block and stores the result
func (e *Engine) RevalidateChain() blockchain.ValidationReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.revalidateLocked()
}

func (e *Engine) revalidateLocked() blockchain.ValidationReport {
	if e.revalidate != nil {
		e.revalidate.Stop()
		e.revalidate = nil
	}

	blocks, err := e.store.GetBlocks()
	if err != nil {
		e.logger.Error("failed to read chain for validation", zap.Error(err))
		return blockchain.ValidationReport{FirstInvalid: -1}
	}
	validated := blockchain.Revalidate(e.hasher, blocks)
	if err := e.store.ReplaceChain(validated); err != nil {
		e.logger.Error("failed to store validated chain", zap.Error(err))
	}

	report := blockchain.Report(e.hasher, validated)
	if report.Valid {
		e.logger.Debug("chain validated", zap.Int("blocks", len(validated)))
		e.publishLocked(Event{Type: EventChainValidated, Report: &report})
	} else {
		e.logger.Info("chain invalid",
			zap.Int("first_invalid", report.FirstInvalid),
			zap.Stringer("reason", report.Reason),
			zap.Int("invalid_blocks", report.InvalidCount))
		e.publishLocked(Event{Type: EventChainInvalid, Index: indexPtr(uint64(report.FirstInvalid)), Report: &report})
	}
	return report
}

func (e *Engine) scheduleRevalidationLocked() {
	if e.config.RevalidateDelay == 0 {
		e.revalidateLocked()
		return
	}

	if e.revalidate != nil {
		e.revalidate.Stop()
	}
	gen := e.generation
	e.revalidate = time.AfterFunc(e.config.RevalidateDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || gen != e.generation {
			return
		}
		e.revalidate = nil
		e.revalidateLocked()
	})
}

// ResetChain cancels any mining, discards chain and mempool and starts over
// from a new genesis block
func (e *Engine) ResetChain() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel(errReset)
		e.cancel = nil
	}
	if e.revalidate != nil {
		e.revalidate.Stop()
		e.revalidate = nil
	}
	e.generation++
	e.mining = MiningState{}

	e.logger.Info("chain reset", zap.Uint64("generation", e.generation))
	e.publishLocked(Event{Type: EventChainReset})
	return e.initializeLocked()
}

// SetDifficulty applies to mining runs started afterwards
func (e *Engine) SetDifficulty(difficulty int) error {
	if err := blockchain.ValidateDifficulty(difficulty); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.difficulty == difficulty {
		return nil
	}
	e.difficulty = difficulty
	e.logger.Info("difficulty changed", zap.Int("difficulty", difficulty))
	e.publishLocked(Event{Type: EventDifficultyChanged, Difficulty: difficulty})
	return nil
}

func (e *Engine) Difficulty() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.difficulty
}

func (e *Engine) Hasher() blockchain.Hasher {
	return e.hasher
}

// Blocks returns a copy of the chain with the IsValid flags last computed
func (e *Engine) Blocks() []*blockchain.Block {
	blocks, err := e.store.GetBlocks()
	if err != nil {
		e.logger.Error("failed to read chain", zap.Error(err))
		return nil
	}
	return blocks
}

func (e *Engine) Block(index uint64) (*blockchain.Block, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blockLocked(index)
}

func (e *Engine) blockLocked(index uint64) (*blockchain.Block, error) {
	block, err := e.store.GetBlock(index)
	if err != nil {
		if errors.Is(err, store.ErrBlockNotFound) {
			return nil, fmt.Errorf("%w: index %d", ErrBlockNotFound, index)
		}
		return nil, err
	}
	return block, nil
}

func (e *Engine) Mempool() []blockchain.Transaction {
	pending, err := e.store.GetPending()
	if err != nil {
		e.logger.Error("failed to read mempool", zap.Error(err))
		return nil
	}
	return pending
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	blocks, _ := e.store.GetBlocks()
	pending, _ := e.store.GetPending()
	valid := true
	for _, b := range blocks {
		valid = valid && b.IsValid
	}
	return Snapshot{
		Blocks:        blocks,
		Mempool:       pending,
		Difficulty:    e.difficulty,
		Mining:        e.mining,
		Valid:         valid,
		HashAlgorithm: e.hasher.Name(),
	}
}

func (e *Engine) Subscribe() <-chan Event {
	return e.events.Subscribe()
}

func (e *Engine) Unsubscribe(ch <-chan Event) {
	e.events.Unsubscribe(ch)
}

// Close stops mining and pending timers and closes every subscription
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel(ErrClosed)
		e.cancel = nil
	}
	if e.revalidate != nil {
		e.revalidate.Stop()
		e.revalidate = nil
	}
	e.events.Close()
}

func (e *Engine) publishLocked(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	e.events.Publish(ev)
}
