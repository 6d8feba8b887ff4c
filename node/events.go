package node

import (
	"sync"
	"sync/atomic"
	"time"

	"chainlab/blockchain"
)

type EventType string

const (
	EventGenesisCreated     EventType = "genesis-created"
	EventTransactionAdded   EventType = "transaction-added"
	EventTransactionRemoved EventType = "transaction-removed"
	EventMiningStarted      EventType = "mining-started"
	EventMiningProgress     EventType = "mining-progress"
	EventMiningComplete     EventType = "mining-complete"
	EventMiningCancelled    EventType = "mining-cancelled"
	EventBlockTampered      EventType = "block-tampered"
	EventBlockRemined       EventType = "block-remined"
	EventChainValidated     EventType = "chain-validated"
	EventChainInvalid       EventType = "chain-invalid"
	EventChainReset         EventType = "chain-reset"
	EventDifficultyChanged  EventType = "difficulty-changed"
)

// Event is an advisory notification for the UI layer. Nothing it carries
// flows back into the engine.
type Event struct {
	Type          EventType                    `json:"type"`
	Time          time.Time                    `json:"time"`
	Index         *uint64                      `json:"index,omitempty"`
	Nonce         uint64                       `json:"nonce,omitempty"`
	Hash          string                       `json:"hash,omitempty"`
	Progress      float64                      `json:"progress,omitempty"`
	Difficulty    int                          `json:"difficulty,omitempty"`
	TransactionID string                       `json:"transaction_id,omitempty"`
	Report        *blockchain.ValidationReport `json:"report,omitempty"`
	Message       string                       `json:"message,omitempty"`
}

func indexPtr(i uint64) *uint64 {
	return &i
}

// EventBroker fans events out to subscribers. A subscriber that is not
// keeping up misses events instead of stalling the engine.
type EventBroker struct {
	mu      sync.Mutex
	subs    map[<-chan Event]chan Event
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

func NewEventBroker(buffer int) *EventBroker {
	return &EventBroker{
		subs:   make(map[<-chan Event]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel receiving every event published from now on.
// The channel is closed by Unsubscribe or Close.
func (b *EventBroker) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

func (b *EventBroker) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(c)
	}
}

func (b *EventBroker) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // slow subscriber, don't block
			b.dropped.Add(1)
		}
	}
}

// Dropped counts events that were not delivered to a full subscriber
func (b *EventBroker) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *EventBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for key, ch := range b.subs {
		delete(b.subs, key)
		close(ch)
	}
}
