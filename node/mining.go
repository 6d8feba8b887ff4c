package node

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"chainlab/blockchain"
)

var errReset = errors.New("chain reset")

// MiningState is the observable side of the single mining slot
type MiningState struct {
	IsMining     bool      `json:"is_mining"`
	Target       uint64    `json:"target"`
	Remine       bool      `json:"remine"`
	Difficulty   int       `json:"difficulty"`
	CurrentNonce uint64    `json:"current_nonce"`
	CurrentHash  string    `json:"current_hash"`
	Progress     float64   `json:"progress"`
	Attempts     uint64    `json:"attempts"`
	StartedAt    time.Time `json:"started_at"`
}

// MineOutcome describes how a mining request ended. A cancelled run is an
// outcome, not an error. Stale marks work discarded because the chain was
// reset or the block changed while it was being mined.
type MineOutcome struct {
	Block     *blockchain.Block       `json:"block,omitempty"`
	Result    blockchain.MiningResult `json:"result"`
	Cancelled bool                    `json:"cancelled"`
	Stale     bool                    `json:"stale"`
	Cascaded  []uint64                `json:"cascaded,omitempty"`
}

type miningRun struct {
	ctx        context.Context
	cancel     context.CancelCauseFunc
	generation uint64
	difficulty int
	target     uint64
}

// MineResult carries the end of an asynchronous mining run
type MineResult struct {
	Outcome MineOutcome
	Err     error
}

type mineJob func() (MineOutcome, error)

func runAsync(job mineJob) <-chan MineResult {
	ch := make(chan MineResult, 1)
	go func() {
		outcome, err := job()
		ch <- MineResult{Outcome: outcome, Err: err}
	}()
	return ch
}

// MineNextBlock packs up to BatchSize of the oldest pending transactions
// into a new block on top of the head and mines it. It blocks until the
// block is found or the run is cancelled.
func (e *Engine) MineNextBlock(ctx context.Context) (MineOutcome, error) {
	job, err := e.prepareNextBlock(ctx)
	if err != nil {
		return MineOutcome{}, err
	}
	return job()
}

// StartMining claims the mining slot and mines the next block in the
// background. Errors that prevent the run from starting are returned
// directly.
func (e *Engine) StartMining(ctx context.Context) (<-chan MineResult, error) {
	job, err := e.prepareNextBlock(ctx)
	if err != nil {
		return nil, err
	}
	return runAsync(job), nil
}

func (e *Engine) prepareNextBlock(ctx context.Context) (mineJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkIdleLocked(); err != nil {
		return nil, err
	}
	head, err := e.store.GetHeadBlock()
	if err != nil {
		return nil, fmt.Errorf("failed to get head block: %w", err)
	}
	if head == nil {
		return nil, ErrEmptyChain
	}
	batch, err := e.store.OldestPending(e.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read mempool: %w", err)
	}

	tmpl := blockchain.NewBlockTemplate(blockchain.BlockCreationParams{
		Previous:     head,
		Transactions: batch,
		Timestamp:    e.now(),
	})
	run := e.beginMiningLocked(ctx, tmpl.Index, false)

	return func() (MineOutcome, error) {
		block, res, mineErr := e.mine(run, tmpl)
		return e.commitNextBlock(run, block, res, mineErr, batch)
	}, nil
}

func (e *Engine) commitNextBlock(run *miningRun, block *blockchain.Block, res blockchain.MiningResult, mineErr error, batch []blockchain.Transaction) (MineOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if outcome, done, err := e.finishMiningLocked(run, mineErr); done {
		return outcome, err
	}

	// The head may have been tampered with while we were mining
	head, err := e.store.GetHeadBlock()
	if err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, fmt.Errorf("failed to get head block: %w", err)
	}
	block.IsValid = blockchain.CheckBlock(e.hasher, block, head, head.IsValid) == blockchain.VerdictValid
	if err := e.store.AddBlock(block); err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, fmt.Errorf("failed to add mined block: %w", err)
	}

	ids := make([]string, len(batch))
	for i, tx := range batch {
		ids[i] = tx.ID
	}
	e.store.RemovePending(ids...)

	e.completeMiningLocked(run, res)
	e.logger.Info("block mined",
		zap.Uint64("index", block.Index),
		zap.Int("transactions", len(block.Transactions)),
		zap.Uint64("nonce", res.Nonce),
		zap.String("hash", blockchain.FormatHash(res.Hash, 8)),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("hash_rate", res.HashRate()))
	e.publishLocked(Event{Type: EventMiningComplete, Index: indexPtr(block.Index), Nonce: res.Nonce, Hash: res.Hash, Progress: 100})

	return MineOutcome{Block: block, Result: res}, nil
}

// RemineBlock mines an existing block again, linking it to the current hash
// of its predecessor. Every following block is relinked to its predecessor
// without being rehashed, so the next block shows a hash mismatch until it
// is mined again. With CascadeRemine the engine mines those blocks too,
// holding the mining slot until the whole tail is done.
func (e *Engine) RemineBlock(ctx context.Context, index uint64) (MineOutcome, error) {
	job, err := e.prepareRemine(ctx, index)
	if err != nil {
		return MineOutcome{}, err
	}
	return job()
}

// StartRemine is the background form of RemineBlock
func (e *Engine) StartRemine(ctx context.Context, index uint64) (<-chan MineResult, error) {
	job, err := e.prepareRemine(ctx, index)
	if err != nil {
		return nil, err
	}
	return runAsync(job), nil
}

// remineStep is one block of a re-mine run
type remineStep struct {
	original *blockchain.Block
	tmpl     blockchain.BlockTemplate
}

func (e *Engine) prepareRemine(ctx context.Context, index uint64) (mineJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkIdleLocked(); err != nil {
		return nil, err
	}
	step, err := e.remineStepLocked(index)
	if err != nil {
		return nil, err
	}
	run := e.beginMiningLocked(ctx, index, true)

	return func() (MineOutcome, error) {
		return e.remineRun(run, step)
	}, nil
}

func (e *Engine) remineStepLocked(index uint64) (*remineStep, error) {
	original, err := e.blockLocked(index)
	if err != nil {
		return nil, err
	}
	if original.IsGenesis() {
		return nil, ErrGenesisRemine
	}
	prev, err := e.blockLocked(index - 1)
	if err != nil {
		return nil, err
	}

	tmpl := original.Template()
	tmpl.PreviousHash = prev.Hash
	return &remineStep{original: original, tmpl: tmpl}, nil
}

func (e *Engine) remineRun(run *miningRun, step *remineStep) (MineOutcome, error) {
	var outcome MineOutcome
	for first := true; step != nil; first = false {
		index := step.original.Index
		block, res, mineErr := e.mine(run, step.tmpl)

		var (
			stepOutcome MineOutcome
			err         error
		)
		stepOutcome, step, err = e.commitRemine(run, step.original, block, res, mineErr)
		switch {
		case err != nil && first:
			return MineOutcome{}, err
		case err != nil:
			return outcome, fmt.Errorf("cascade stopped at block %d: %w", index, err)
		case first:
			outcome = stepOutcome
		case stepOutcome.Cancelled:
			outcome.Cancelled = true
			outcome.Stale = stepOutcome.Stale
		default:
			outcome.Cascaded = append(outcome.Cascaded, index)
		}
	}
	return outcome, nil
}

// commitRemine stores a re-mined block and relinks the blocks after it. next
// is the following block when the run cascades; the slot stays claimed.
func (e *Engine) commitRemine(run *miningRun, original, block *blockchain.Block, res blockchain.MiningResult, mineErr error) (outcome MineOutcome, next *remineStep, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if outcome, done, err := e.finishMiningLocked(run, mineErr); done {
		return outcome, nil, err
	}

	index := original.Index
	current, err := e.blockLocked(index)
	if err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, nil, err
	}
	if !sameContent(current, original) {
		e.releaseLocked(run)
		e.logger.Info("discarding remine, block changed while mining", zap.Uint64("index", index))
		e.publishLocked(Event{Type: EventMiningCancelled, Index: indexPtr(index), Message: "block changed while mining"})
		return MineOutcome{Cancelled: true, Stale: true}, nil, nil
	}

	if err := e.store.ReplaceBlock(block); err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, nil, fmt.Errorf("failed to store remined block: %w", err)
	}
	if err := e.relinkLocked(index + 1); err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, nil, err
	}

	e.logger.Info("block remined",
		zap.Uint64("index", index),
		zap.Uint64("nonce", res.Nonce),
		zap.String("hash", blockchain.FormatHash(res.Hash, 8)),
		zap.Duration("elapsed", res.Elapsed))
	e.publishLocked(Event{Type: EventBlockRemined, Index: indexPtr(index), Nonce: res.Nonce, Hash: res.Hash, Progress: 100})
	e.revalidateLocked()

	stored, err := e.blockLocked(index)
	if err != nil {
		e.releaseLocked(run)
		return MineOutcome{}, nil, err
	}

	if next = e.cascadeLocked(index + 1); next != nil {
		e.retargetLocked(run, next.original.Index, true)
		return MineOutcome{Block: stored, Result: res}, next, nil
	}
	e.completeMiningLocked(run, res)
	return MineOutcome{Block: stored, Result: res}, nil, nil
}

// relinkLocked points every block from index from on at its predecessor's
// current hash
func (e *Engine) relinkLocked(from uint64) error {
	blocks, err := e.store.GetBlocks()
	if err != nil {
		return fmt.Errorf("failed to read chain for relink: %w", err)
	}
	if from >= uint64(len(blocks)) {
		return nil
	}
	if err := e.store.ReplaceChain(blockchain.Relink(blocks, from)); err != nil {
		return fmt.Errorf("failed to store relinked chain: %w", err)
	}
	return nil
}

// cascadeLocked returns the next block to mine in cascade mode, nil when
// the run ends here
func (e *Engine) cascadeLocked(index uint64) *remineStep {
	if !e.config.CascadeRemine {
		return nil
	}
	height, err := e.store.GetChainHeight()
	if err != nil || index >= height {
		return nil
	}
	step, err := e.remineStepLocked(index)
	if err != nil {
		e.logger.Warn("cascade stopped", zap.Uint64("index", index), zap.Error(err))
		return nil
	}
	return step
}

// CancelMining stops the running search, if any
func (e *Engine) CancelMining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel == nil {
		return false
	}
	e.cancel(blockchain.ErrMiningCancelled)
	e.cancel = nil
	return true
}

func (e *Engine) MiningState() MiningState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mining
}

func (e *Engine) checkIdleLocked() error {
	if e.closed {
		return ErrClosed
	}
	if e.mining.IsMining {
		return fmt.Errorf("%w: block %d", ErrMiningInProgress, e.mining.Target)
	}
	return nil
}

func (e *Engine) beginMiningLocked(parent context.Context, target uint64, remine bool) *miningRun {
	ctx, cancel := context.WithCancelCause(parent)
	run := &miningRun{
		ctx:        ctx,
		cancel:     cancel,
		generation: e.generation,
		difficulty: e.difficulty,
	}
	e.cancel = cancel
	e.retargetLocked(run, target, remine)
	return run
}

// retargetLocked points a claimed run at a new block
func (e *Engine) retargetLocked(run *miningRun, target uint64, remine bool) {
	run.target = target
	e.mining = MiningState{
		IsMining:   true,
		Target:     target,
		Remine:     remine,
		Difficulty: run.difficulty,
		StartedAt:  e.now(),
	}

	e.logger.Info("mining started",
		zap.Uint64("index", target),
		zap.Int("difficulty", run.difficulty),
		zap.Bool("remine", remine))
	e.publishLocked(Event{Type: EventMiningStarted, Index: indexPtr(target), Difficulty: run.difficulty})
}

func (e *Engine) mine(run *miningRun, tmpl blockchain.BlockTemplate) (*blockchain.Block, blockchain.MiningResult, error) {
	miner := &blockchain.Miner{Hasher: e.hasher, Stride: e.config.ProgressStride}
	return miner.MineBlock(run.ctx, tmpl, run.difficulty, func(p blockchain.Progress) {
		if e.config.OnProgress != nil {
			e.config.OnProgress(p)
		}
		e.reportProgress(run, p)
	})
}

func (e *Engine) reportProgress(run *miningRun, p blockchain.Progress) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run.generation != e.generation || !e.mining.IsMining {
		return
	}
	e.mining.CurrentNonce = p.Nonce
	e.mining.CurrentHash = p.Hash
	e.mining.Attempts = p.Attempts
	e.mining.Progress = blockchain.EstimateProgress(p.Nonce, run.difficulty)
	e.publishLocked(Event{
		Type:     EventMiningProgress,
		Index:    indexPtr(run.target),
		Nonce:    p.Nonce,
		Hash:     p.Hash,
		Progress: e.mining.Progress,
	})
}

// finishMiningLocked ends a search that produced nothing to commit, which
// done reports. After a successful search the slot stays claimed until the
// caller completes or releases it.
func (e *Engine) finishMiningLocked(run *miningRun, mineErr error) (outcome MineOutcome, done bool, err error) {
	if run.generation != e.generation {
		run.cancel(nil)
		e.logger.Debug("discarding stale mining result", zap.Uint64("index", run.target))
		return MineOutcome{Cancelled: true, Stale: true}, true, nil
	}
	if mineErr == nil {
		return MineOutcome{}, false, nil
	}

	e.releaseLocked(run)
	if errors.Is(mineErr, blockchain.ErrMiningCancelled) {
		e.logger.Info("mining cancelled", zap.Uint64("index", run.target), zap.Error(mineErr))
		e.publishLocked(Event{Type: EventMiningCancelled, Index: indexPtr(run.target)})
		return MineOutcome{Cancelled: true}, true, nil
	}
	return MineOutcome{}, true, mineErr
}

// releaseLocked frees the mining slot held by run
func (e *Engine) releaseLocked(run *miningRun) {
	run.cancel(nil)
	e.cancel = nil
	e.mining = MiningState{}
}

func (e *Engine) completeMiningLocked(run *miningRun, res blockchain.MiningResult) {
	run.cancel(nil)
	e.cancel = nil
	e.mining = MiningState{
		Target:       run.target,
		Remine:       e.mining.Remine,
		Difficulty:   run.difficulty,
		CurrentNonce: res.Nonce,
		CurrentHash:  res.Hash,
		Progress:     100,
		Attempts:     res.Attempts,
		StartedAt:    e.mining.StartedAt,
	}
}

func sameContent(a, b *blockchain.Block) bool {
	return a.Index == b.Index &&
		a.Timestamp == b.Timestamp &&
		slices.Equal(a.Transactions, b.Transactions)
}
