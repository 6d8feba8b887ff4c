package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap/zaptest"

	"chainlab/blockchain"
	"chainlab/mocks"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Difficulty = 1
	cfg.Clock = mocks.SteppingClock(mocks.FixedTime, time.Second)
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func submitN(t *testing.T, e *Engine, n int) []blockchain.Transaction {
	t.Helper()
	r := mocks.NewRand(42)
	var txs []blockchain.Transaction
	for _, p := range mocks.GenerateTransactionParams(r, n) {
		tx, err := e.SubmitTransaction(p.Sender, p.Receiver, p.Amount)
		if err != nil {
			t.Fatalf("SubmitTransaction(%+v) failed: %v", p, err)
		}
		txs = append(txs, tx)
	}
	return txs
}

func mineN(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		outcome, err := e.MineNextBlock(context.Background())
		if err != nil {
			t.Fatalf("MineNextBlock() failed: %v", err)
		}
		if outcome.Cancelled {
			t.Fatalf("MineNextBlock() unexpectedly cancelled")
		}
	}
}

func validFlags(blocks []*blockchain.Block) []bool {
	out := make([]bool, len(blocks))
	for i, b := range blocks {
		out[i] = b.IsValid
	}
	return out
}

func expectFlags(t *testing.T, e *Engine, want ...bool) {
	t.Helper()
	blocks := e.Blocks()
	got := validFlags(blocks)
	if len(got) != len(want) {
		t.Fatalf("chain has %d blocks, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("validity = %v, want %v\n%s", got, want, spew.Sdump(blocks))
		}
	}
}

func waitForEvent(t *testing.T, ch <-chan Event, typ EventType) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", typ)
			}
			if ev.Type == typ {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// pauseOnProgress holds the first progress report that hold accepts until
// release is called
func pauseOnProgress(c *Config, hold func() bool) (reached <-chan struct{}, release func()) {
	paused := make(chan struct{})
	gate := make(chan struct{})
	var pauseOnce, releaseOnce sync.Once
	c.OnProgress = func(blockchain.Progress) {
		if hold != nil && !hold() {
			return
		}
		pauseOnce.Do(func() {
			close(paused)
			<-gate
		})
	}
	return paused, func() { releaseOnce.Do(func() { close(gate) }) }
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewEngine(t *testing.T) {
	e := newTestEngine(t, nil)

	blocks := e.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("New() created %d blocks, want 1", len(blocks))
	}
	genesis := blocks[0]
	if genesis.Index != 0 || genesis.PreviousHash != blockchain.ZeroHash || !genesis.IsValid {
		t.Errorf("unexpected genesis block: %s", spew.Sdump(genesis))
	}
	if !blockchain.HashMeetsDifficulty(genesis.Hash, blockchain.GenesisDifficulty) {
		t.Errorf("genesis hash %s does not meet difficulty %d", genesis.Hash, blockchain.GenesisDifficulty)
	}
	if len(e.Mempool()) != 0 {
		t.Error("New() should start with an empty mempool")
	}
	if e.MiningState().IsMining {
		t.Error("New() should start idle")
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"difficulty too low", func(c *Config) { c.Difficulty = 0 }},
		{"difficulty too high", func(c *Config) { c.Difficulty = 6 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"unknown hash", func(c *Config) { c.HashAlgorithm = "md5" }},
		{"negative delay", func(c *Config) { c.RevalidateDelay = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
				t.Error("New() expected error")
			}
		})
	}
}

func TestSubmitTransaction(t *testing.T) {
	e := newTestEngine(t, nil)

	tx, err := e.SubmitTransaction("Alice", "Bob", 10)
	if err != nil {
		t.Fatalf("SubmitTransaction() failed: %v", err)
	}
	if tx.ID == "" || tx.Sender != "Alice" || tx.Receiver != "Bob" || tx.Amount != 10 {
		t.Errorf("unexpected transaction: %+v", tx)
	}

	for name, p := range mocks.InvalidTransactionParams() {
		t.Run(name, func(t *testing.T) {
			if _, err := e.SubmitTransaction(p.Sender, p.Receiver, p.Amount); err == nil {
				t.Errorf("SubmitTransaction(%+v) expected error", p)
			}
		})
	}

	if got := len(e.Mempool()); got != 1 {
		t.Errorf("mempool has %d transactions after rejections, want 1", got)
	}
}

func TestRemoveTransaction(t *testing.T) {
	e := newTestEngine(t, nil)
	txs := submitN(t, e, 3)

	if !e.RemoveTransaction(txs[1].ID) {
		t.Error("RemoveTransaction() of a pending id returned false")
	}
	if e.RemoveTransaction("no-such-id") {
		t.Error("RemoveTransaction() of an unknown id returned true")
	}

	pending := e.Mempool()
	if len(pending) != 2 || pending[0].ID != txs[0].ID || pending[1].ID != txs[2].ID {
		t.Errorf("mempool after removal = %s", spew.Sdump(pending))
	}
}

// Scenario: mine with a fresh engine and seven pending transactions
func TestMineNextBlockTakesOldestBatch(t *testing.T) {
	e := newTestEngine(t, nil)
	txs := submitN(t, e, 7)

	outcome, err := e.MineNextBlock(context.Background())
	if err != nil {
		t.Fatalf("MineNextBlock() failed: %v", err)
	}

	block := outcome.Block
	if block.Index != 1 {
		t.Errorf("mined block index = %d, want 1", block.Index)
	}
	if len(block.Transactions) != blockchain.BatchSize {
		t.Fatalf("mined block has %d transactions, want %d", len(block.Transactions), blockchain.BatchSize)
	}
	for i, tx := range block.Transactions {
		if tx.ID != txs[i].ID {
			t.Errorf("block transaction %d = %s, want %s", i, tx.ID, txs[i].ID)
		}
	}
	if !blockchain.HashMeetsDifficulty(block.Hash, 1) {
		t.Errorf("mined hash %s does not meet difficulty 1", block.Hash)
	}

	pending := e.Mempool()
	if len(pending) != 2 || pending[0].ID != txs[5].ID || pending[1].ID != txs[6].ID {
		t.Errorf("mempool after mining = %s", spew.Sdump(pending))
	}

	blocks := e.Blocks()
	if blocks[1].PreviousHash != blocks[0].Hash {
		t.Error("mined block does not link to genesis")
	}
	expectFlags(t, e, true, true)

	state := e.MiningState()
	if state.IsMining || state.Progress != 100 || state.CurrentHash != block.Hash {
		t.Errorf("mining state after success = %+v", state)
	}
}

func TestMineNextBlockEmptyMempool(t *testing.T) {
	e := newTestEngine(t, nil)

	outcome, err := e.MineNextBlock(context.Background())
	if err != nil {
		t.Fatalf("MineNextBlock() failed: %v", err)
	}
	if len(outcome.Block.Transactions) != 0 {
		t.Errorf("empty mempool produced %d transactions", len(outcome.Block.Transactions))
	}
	expectFlags(t, e, true, true)
}

// Scenario: tamper with a middle block, then repair block by block
func TestTamperAndManualRepair(t *testing.T) {
	e := newTestEngine(t, nil)
	submitN(t, e, 6)
	mineN(t, e, 3)
	expectFlags(t, e, true, true, true, true)

	amount := 999.0
	if _, err := e.EditTransaction(1, 0, blockchain.TransactionEdit{Amount: &amount}); err != nil {
		t.Fatalf("EditTransaction() failed: %v", err)
	}
	expectFlags(t, e, true, false, false, false)

	edited, _ := e.Block(1)
	if edited.Transactions[0].Amount != amount {
		t.Errorf("edited amount = %v, want %v", edited.Transactions[0].Amount, amount)
	}

	for i, want := range [][]bool{
		{true, true, false, false},
		{true, true, true, false},
		{true, true, true, true},
	} {
		index := uint64(i + 1)
		outcome, err := e.RemineBlock(context.Background(), index)
		if err != nil {
			t.Fatalf("RemineBlock(%d) failed: %v", index, err)
		}
		if outcome.Cancelled {
			t.Fatalf("RemineBlock(%d) unexpectedly cancelled", index)
		}
		expectFlags(t, e, want...)

		blocks := e.Blocks()
		if next := index + 1; next < uint64(len(blocks)) {
			if blocks[next].PreviousHash != blocks[index].Hash {
				t.Errorf("block %d previous hash = %s, want %s after remining block %d",
					next, blocks[next].PreviousHash, blocks[index].Hash, index)
			}
			if report := e.RevalidateChain(); report.FirstInvalid != int(next) || report.Reason != blockchain.VerdictHashMismatch {
				t.Errorf("report after remining block %d = %+v, want hash mismatch at %d", index, report, next)
			}
		}
	}

	remined, _ := e.Block(1)
	if remined.Transactions[0].Amount != amount {
		t.Error("remining must keep the tampered content")
	}
}

func TestRemineCascade(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.CascadeRemine = true })
	mineN(t, e, 4)

	ts := int64(1)
	if _, err := e.TamperBlock(2, BlockChanges{Timestamp: &ts}); err != nil {
		t.Fatalf("TamperBlock() failed: %v", err)
	}
	expectFlags(t, e, true, true, false, false, false)

	outcome, err := e.RemineBlock(context.Background(), 2)
	if err != nil {
		t.Fatalf("RemineBlock() failed: %v", err)
	}
	if len(outcome.Cascaded) != 2 || outcome.Cascaded[0] != 3 || outcome.Cascaded[1] != 4 {
		t.Errorf("cascaded = %v, want [3 4]", outcome.Cascaded)
	}
	expectFlags(t, e, true, true, true, true, true)
}

func TestRemineCascadeHoldsSlot(t *testing.T) {
	var (
		e       *Engine
		armed   atomic.Bool
		reached <-chan struct{}
		release func()
	)
	e = newTestEngine(t, func(c *Config) {
		c.CascadeRemine = true
		c.ProgressStride = 1
		reached, release = pauseOnProgress(c, func() bool {
			return armed.Load() && e.MiningState().Target == 2
		})
	})
	t.Cleanup(release)
	mineN(t, e, 3)

	ts := int64(1)
	if _, err := e.TamperBlock(1, BlockChanges{Timestamp: &ts}); err != nil {
		t.Fatalf("TamperBlock() failed: %v", err)
	}
	if err := e.SetDifficulty(3); err != nil {
		t.Fatalf("SetDifficulty() failed: %v", err)
	}
	armed.Store(true)

	results, err := e.StartRemine(context.Background(), 1)
	if err != nil {
		t.Fatalf("StartRemine() failed: %v", err)
	}
	waitFor(t, reached, "the cascade to reach block 2")

	if _, err := e.StartMining(context.Background()); !errors.Is(err, ErrMiningInProgress) {
		t.Errorf("StartMining() during a cascade error = %v, want ErrMiningInProgress", err)
	}
	if !e.CancelMining() {
		t.Error("CancelMining() during a cascade returned false")
	}
	release()

	res := <-results
	if res.Err != nil {
		t.Fatalf("cancelled cascade returned error %v", res.Err)
	}
	if !res.Outcome.Cancelled || len(res.Outcome.Cascaded) != 0 {
		t.Errorf("outcome = %s, want cancelled with nothing cascaded", spew.Sdump(res.Outcome))
	}
	expectFlags(t, e, true, true, false, false)

	blocks := e.Blocks()
	if blocks[1].Timestamp != ts || blocks[2].PreviousHash != blocks[1].Hash {
		t.Errorf("block 1 not remined or block 2 not relinked\n%s", spew.Sdump(blocks[1:3]))
	}
	if e.MiningState().IsMining {
		t.Error("engine still mining after the cascade was cancelled")
	}
}

func TestRemineRejections(t *testing.T) {
	e := newTestEngine(t, nil)
	mineN(t, e, 1)

	if _, err := e.RemineBlock(context.Background(), 0); !errors.Is(err, ErrGenesisRemine) {
		t.Errorf("RemineBlock(0) error = %v, want ErrGenesisRemine", err)
	}
	if _, err := e.RemineBlock(context.Background(), 9); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("RemineBlock(9) error = %v, want ErrBlockNotFound", err)
	}
	if _, err := e.TamperBlock(9, BlockChanges{}); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("TamperBlock(9) error = %v, want ErrBlockNotFound", err)
	}
	if _, err := e.EditTransaction(1, 0, blockchain.TransactionEdit{}); !errors.Is(err, ErrTransactionIndex) {
		t.Errorf("EditTransaction() on an empty block error = %v, want ErrTransactionIndex", err)
	}
}

// A block mined on top of an invalid head is not valid either
func TestMineOnTamperedHead(t *testing.T) {
	e := newTestEngine(t, nil)

	hash := blockchain.ZeroHash
	if _, err := e.TamperBlock(0, BlockChanges{Hash: &hash}); err != nil {
		t.Fatalf("TamperBlock() failed: %v", err)
	}
	expectFlags(t, e, false)

	mineN(t, e, 1)
	expectFlags(t, e, false, false)
}

func TestMineNextBlockCancelledContext(t *testing.T) {
	e := newTestEngine(t, nil)
	submitN(t, e, 3)
	before := e.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := e.MineNextBlock(ctx)
	if err != nil {
		t.Fatalf("MineNextBlock() error = %v, cancellation is not an error", err)
	}
	if !outcome.Cancelled || outcome.Block != nil {
		t.Errorf("outcome = %+v, want cancelled without block", outcome)
	}

	after := e.Snapshot()
	if len(after.Blocks) != len(before.Blocks) || len(after.Mempool) != len(before.Mempool) {
		t.Errorf("cancelled mining changed state: %d blocks %d pending, want %d and %d",
			len(after.Blocks), len(after.Mempool), len(before.Blocks), len(before.Mempool))
	}
	if after.Mining.IsMining || after.Mining.Progress != 0 {
		t.Errorf("mining state after cancel = %+v", after.Mining)
	}
}

func TestCancelMining(t *testing.T) {
	var (
		reached <-chan struct{}
		release func()
	)
	e := newTestEngine(t, func(c *Config) {
		c.Difficulty = blockchain.MaxDifficulty
		reached, release = pauseOnProgress(c, nil)
	})
	t.Cleanup(release)
	submitN(t, e, 2)

	if e.CancelMining() {
		t.Error("CancelMining() with nothing running returned true")
	}

	results, err := e.StartMining(context.Background())
	if err != nil {
		t.Fatalf("StartMining() failed: %v", err)
	}
	waitFor(t, reached, "the search to start")

	if _, err := e.StartMining(context.Background()); !errors.Is(err, ErrMiningInProgress) {
		t.Errorf("concurrent StartMining() error = %v, want ErrMiningInProgress", err)
	}
	if _, err := e.StartRemine(context.Background(), 1); !errors.Is(err, ErrMiningInProgress) {
		t.Errorf("concurrent StartRemine() error = %v, want ErrMiningInProgress", err)
	}
	if !e.CancelMining() {
		t.Error("CancelMining() during a search returned false")
	}
	release()

	res := <-results
	if res.Err != nil {
		t.Fatalf("cancelled mining returned error %v", res.Err)
	}
	if !res.Outcome.Cancelled || res.Outcome.Block != nil {
		t.Fatalf("outcome = %s, want cancelled", spew.Sdump(res.Outcome))
	}
	if height := len(e.Blocks()); height != 1 {
		t.Errorf("chain height after cancel = %d, want 1", height)
	}
	if pending := len(e.Mempool()); pending != 2 {
		t.Errorf("mempool after cancel = %d, want 2", pending)
	}
	if state := e.MiningState(); state.IsMining || state.Progress != 0 {
		t.Errorf("mining state after cancel = %+v", state)
	}
}

func TestStartRemine(t *testing.T) {
	e := newTestEngine(t, nil)
	mineN(t, e, 2)

	if _, err := e.StartRemine(context.Background(), 0); !errors.Is(err, ErrGenesisRemine) {
		t.Errorf("StartRemine(0) error = %v, want ErrGenesisRemine", err)
	}

	ts := int64(7)
	e.TamperBlock(1, BlockChanges{Timestamp: &ts})
	results, err := e.StartRemine(context.Background(), 1)
	if err != nil {
		t.Fatalf("StartRemine(1) failed: %v", err)
	}
	res := <-results
	if res.Err != nil || res.Outcome.Block == nil || res.Outcome.Block.Timestamp != ts {
		t.Fatalf("StartRemine(1) result = %s", spew.Sdump(res))
	}
	expectFlags(t, e, true, true, false)
}

func TestResetDiscardsInFlightMining(t *testing.T) {
	if testing.Short() {
		t.Skip("mines at the highest difficulty")
	}
	e := newTestEngine(t, func(c *Config) { c.Difficulty = blockchain.MaxDifficulty })
	submitN(t, e, 2)
	events := e.Subscribe()

	done := make(chan MineOutcome, 1)
	go func() {
		outcome, _ := e.MineNextBlock(context.Background())
		done <- outcome
	}()
	waitForEvent(t, events, EventMiningStarted)

	if err := e.ResetChain(); err != nil {
		t.Fatalf("ResetChain() failed: %v", err)
	}
	outcome := <-done

	if height := len(e.Blocks()); height != 1 {
		t.Errorf("chain height after reset = %d, want 1", height)
	}
	if pending := len(e.Mempool()); pending != 0 {
		t.Errorf("mempool after reset = %d, want 0", pending)
	}
	if outcome.Cancelled && !outcome.Stale {
		t.Errorf("outcome after reset = %+v, want stale", outcome)
	}
	if e.MiningState().IsMining {
		t.Error("engine still mining after reset")
	}
}

func TestResetChain(t *testing.T) {
	e := newTestEngine(t, nil)
	submitN(t, e, 7)
	mineN(t, e, 2)
	oldGenesis := e.Blocks()[0].Hash

	if err := e.ResetChain(); err != nil {
		t.Fatalf("ResetChain() failed: %v", err)
	}

	blocks := e.Blocks()
	if len(blocks) != 1 || len(e.Mempool()) != 0 {
		t.Fatalf("after reset: %d blocks, %d pending", len(blocks), len(e.Mempool()))
	}
	// The stepping clock gives the new genesis a new timestamp
	if blocks[0].Hash == oldGenesis {
		t.Error("reset should mine a fresh genesis block")
	}
	if e.Difficulty() != 1 {
		t.Errorf("reset changed difficulty to %d", e.Difficulty())
	}
}

func TestSetDifficulty(t *testing.T) {
	e := newTestEngine(t, nil)
	events := e.Subscribe()

	for _, d := range []int{0, 6, -1} {
		if err := e.SetDifficulty(d); !errors.Is(err, blockchain.ErrInvalidDifficulty) {
			t.Errorf("SetDifficulty(%d) error = %v, want ErrInvalidDifficulty", d, err)
		}
		if e.Difficulty() != 1 {
			t.Fatalf("rejected SetDifficulty(%d) changed difficulty to %d", d, e.Difficulty())
		}
	}

	if err := e.SetDifficulty(3); err != nil {
		t.Fatalf("SetDifficulty(3) failed: %v", err)
	}
	ev := waitForEvent(t, events, EventDifficultyChanged)
	if ev.Difficulty != 3 {
		t.Errorf("difficulty event = %d, want 3", ev.Difficulty)
	}

	outcome, err := e.MineNextBlock(context.Background())
	if err != nil {
		t.Fatalf("MineNextBlock() failed: %v", err)
	}
	if !blockchain.HashMeetsDifficulty(outcome.Block.Hash, 3) {
		t.Errorf("hash %s mined after SetDifficulty(3) has too few zeros", outcome.Block.Hash)
	}
}

func TestDebouncedRevalidation(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.RevalidateDelay = 20 * time.Millisecond })
	mineN(t, e, 2)
	events := e.Subscribe()

	nonce := uint64(12345)
	if _, err := e.TamperBlock(1, BlockChanges{Nonce: &nonce}); err != nil {
		t.Fatalf("TamperBlock() failed: %v", err)
	}
	waitForEvent(t, events, EventBlockTampered)

	ev := waitForEvent(t, events, EventChainInvalid)
	if ev.Report == nil || ev.Report.FirstInvalid != 1 || ev.Report.Reason != blockchain.VerdictHashMismatch {
		t.Errorf("chain-invalid report = %s", spew.Sdump(ev.Report))
	}
	expectFlags(t, e, true, false, false)
}

func TestRevalidateChainReport(t *testing.T) {
	e := newTestEngine(t, nil)
	mineN(t, e, 2)

	report := e.RevalidateChain()
	if !report.Valid || report.FirstInvalid != -1 {
		t.Errorf("fresh chain report = %+v", report)
	}

	prev := "abc"
	if _, err := e.TamperBlock(2, BlockChanges{PreviousHash: &prev}); err != nil {
		t.Fatalf("TamperBlock() failed: %v", err)
	}
	report = e.RevalidateChain()
	if report.Valid || report.FirstInvalid != 2 || report.InvalidCount != 1 {
		t.Errorf("report after tamper = %+v", report)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	e := newTestEngine(t, nil)
	submitN(t, e, 1)

	snap := e.Snapshot()
	snap.Blocks[0].Hash = "mutated"
	snap.Mempool[0].Amount = -1

	if e.Blocks()[0].Hash == "mutated" || e.Mempool()[0].Amount == -1 {
		t.Error("mutating a snapshot changed engine state")
	}
	if !snap.Valid || snap.HashAlgorithm != blockchain.HashSHA256 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestMiningEvents(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.EventBuffer = 1024 })
	events := e.Subscribe()

	outcome, err := e.MineNextBlock(context.Background())
	if err != nil {
		t.Fatalf("MineNextBlock() failed: %v", err)
	}

	started := waitForEvent(t, events, EventMiningStarted)
	if started.Index == nil || *started.Index != 1 || started.Difficulty != 1 {
		t.Errorf("mining-started event = %+v", started)
	}
	complete := waitForEvent(t, events, EventMiningComplete)
	if complete.Hash != outcome.Block.Hash || complete.Progress != 100 {
		t.Errorf("mining-complete event = %+v", complete)
	}

	e.Unsubscribe(events)
	if _, ok := <-events; ok {
		t.Error("Unsubscribe() should close the channel")
	}
}

func TestSHA3Engine(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.HashAlgorithm = blockchain.HashSHA3256 })
	mineN(t, e, 2)
	expectFlags(t, e, true, true, true)

	block := e.Blocks()[2]
	if blockchain.HashBlock(blockchain.SHA3256, block) != block.Hash {
		t.Error("sha3-256 engine stored a hash computed with another algorithm")
	}
}

func TestClosedEngine(t *testing.T) {
	e := newTestEngine(t, nil)
	events := e.Subscribe()
	e.Close()

	if _, err := e.MineNextBlock(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("MineNextBlock() after Close() error = %v, want ErrClosed", err)
	}
	for range events {
	}
}
