package node

import (
	"errors"
	"fmt"
	"time"

	"chainlab/blockchain"
)

// DefaultRevalidateDelay is the debounce the interactive binary uses
const DefaultRevalidateDelay = 100 * time.Millisecond

// Config holds all configuration for a chain engine
type Config struct {
	// Difficulty is the number of leading zero hex characters new blocks need
	Difficulty int `json:"difficulty"`

	// BatchSize caps how many pending transactions go into one block
	BatchSize int `json:"batch_size"`

	// ProgressStride is the number of attempts between progress events
	ProgressStride uint64 `json:"progress_stride"`

	// HashAlgorithm is "sha256" or "sha3-256"
	HashAlgorithm string `json:"hash_algorithm"`

	// RevalidateDelay debounces the validation pass after a tamper.
	// Zero revalidates before TamperBlock returns.
	RevalidateDelay time.Duration `json:"revalidate_delay"`

	// CascadeRemine makes RemineBlock repair every following block too
	CascadeRemine bool `json:"cascade_remine"`

	// EventBuffer is the channel size given to each subscriber
	EventBuffer int `json:"event_buffer"`

	// OnProgress, when set, runs on the mining goroutine at every progress
	// report before the engine records it. The search waits for it to return.
	OnProgress blockchain.ProgressFunc `json:"-"`

	// Clock defaults to time.Now
	Clock func() time.Time `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Difficulty:     blockchain.DefaultDifficulty,
		BatchSize:      blockchain.BatchSize,
		ProgressStride: blockchain.DefaultProgressStride,
		HashAlgorithm:  blockchain.HashSHA256,
		EventBuffer:    64,
	}
}

func (c Config) Validate() error {
	var errs []error
	if err := blockchain.ValidateDifficulty(c.Difficulty); err != nil {
		errs = append(errs, err)
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize))
	}
	if c.RevalidateDelay < 0 {
		errs = append(errs, fmt.Errorf("revalidate delay must not be negative, got %s", c.RevalidateDelay))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("event buffer must not be negative, got %d", c.EventBuffer))
	}
	if _, err := blockchain.HasherByName(c.HashAlgorithm); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c Config) clock() func() time.Time {
	if c.Clock == nil {
		return time.Now
	}
	return c.Clock
}
