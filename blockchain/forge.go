package blockchain

import (
	"time"

	"github.com/google/uuid"
)

// NowMillis is the timestamp unit used by blocks and transactions
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// NewTransaction validates the fields and stamps a fresh id and timestamp
func NewTransaction(sender, receiver string, amount float64, now time.Time) (Transaction, error) {
	if err := ValidateTransactionFields(sender, receiver, amount); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Timestamp: NowMillis(now),
	}, nil
}

// TransactionEdit describes a tamper on one transaction; nil fields are kept
type TransactionEdit struct {
	Sender   *string  `json:"sender,omitempty"`
	Receiver *string  `json:"receiver,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
}

// Apply returns an edited copy; id and timestamp never change. No validation
// happens here: tampering is allowed to produce nonsense.
func (e TransactionEdit) Apply(tx Transaction) Transaction {
	out := tx
	if e.Sender != nil {
		out.Sender = *e.Sender
	}
	if e.Receiver != nil {
		out.Receiver = *e.Receiver
	}
	if e.Amount != nil {
		out.Amount = *e.Amount
	}
	return out
}

type BlockCreationParams struct {
	Previous     *Block
	Transactions []Transaction
	Timestamp    time.Time
}

// NewBlockTemplate links a new template to the previous block
func NewBlockTemplate(params BlockCreationParams) BlockTemplate {
	ts := params.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	tmpl := BlockTemplate{
		Timestamp:    NowMillis(ts),
		Transactions: cloneTransactions(params.Transactions),
		PreviousHash: ZeroHash,
	}
	if params.Previous != nil {
		tmpl.Index = params.Previous.Index + 1
		tmpl.PreviousHash = params.Previous.Hash
	}
	return tmpl
}
