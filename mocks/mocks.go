package mocks

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"chainlab/blockchain"
)

// FixedTime is the instant every fixture clock starts at
var FixedTime = time.UnixMilli(1700000000000)

// Names used for generated senders and receivers
var Names = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank", "Grace", "Heidi"}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SteppingClock advances by step on every call, so consecutive blocks get
// distinct timestamps while staying reproducible
func SteppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := now
		now = now.Add(step)
		return t
	}
}

// NewRand returns a seeded source so generated data is reproducible
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// TransactionParams is what a user types into the submit form
type TransactionParams struct {
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
}

// GenerateTransactionParams creates count valid submissions between distinct
// names. Amounts are between 0.01 and 100 with two decimals.
func GenerateTransactionParams(r *rand.Rand, count int) []TransactionParams {
	out := make([]TransactionParams, count)
	for i := range out {
		from := r.Intn(len(Names))
		to := (from + 1 + r.Intn(len(Names)-1)) % len(Names)
		cents := 1 + r.Intn(10000)
		out[i] = TransactionParams{
			Sender:   Names[from],
			Receiver: Names[to],
			Amount:   float64(cents) / 100,
		}
	}
	return out
}

// InvalidTransactionParams lists submissions that must be rejected
func InvalidTransactionParams() map[string]TransactionParams {
	return map[string]TransactionParams{
		"empty sender":      {Sender: "", Receiver: "Bob", Amount: 1},
		"blank sender":      {Sender: "   ", Receiver: "Bob", Amount: 1},
		"empty receiver":    {Sender: "Alice", Receiver: "", Amount: 1},
		"zero amount":       {Sender: "Alice", Receiver: "Bob", Amount: 0},
		"negative amount":   {Sender: "Alice", Receiver: "Bob", Amount: -5},
		"whitespace fields": {Sender: "\t", Receiver: "\n", Amount: 3},
	}
}

// GenerateTransactions builds count transactions stamped with the fixed time
func GenerateTransactions(r *rand.Rand, count int) ([]blockchain.Transaction, error) {
	txs := make([]blockchain.Transaction, 0, count)
	for _, p := range GenerateTransactionParams(r, count) {
		tx, err := blockchain.NewTransaction(p.Sender, p.Receiver, p.Amount, FixedTime)
		if err != nil {
			return nil, fmt.Errorf("transaction %+v: %w", p, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GenerateChain mines a linked, valid chain of n blocks including genesis.
// Each non-genesis block carries perBlock random transactions.
func GenerateChain(h blockchain.Hasher, n, perBlock, difficulty int) ([]*blockchain.Block, error) {
	if n < 1 {
		return nil, nil
	}

	genesis, err := blockchain.NewGenesisBlock(h, blockchain.NowMillis(FixedTime))
	if err != nil {
		return nil, err
	}
	blocks := []*blockchain.Block{genesis}

	r := NewRand(int64(n))
	miner := blockchain.NewMiner(h)
	clock := SteppingClock(FixedTime.Add(time.Second), time.Second)
	for i := 1; i < n; i++ {
		txs, err := GenerateTransactions(r, perBlock)
		if err != nil {
			return nil, err
		}
		tmpl := blockchain.NewBlockTemplate(blockchain.BlockCreationParams{
			Previous:     blocks[i-1],
			Transactions: txs,
			Timestamp:    clock(),
		})
		block, _, err := miner.MineBlock(context.Background(), tmpl, difficulty, nil)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
