package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chainlab/blockchain"
	"chainlab/node"
)

// Engine is the part of node.Engine the HTTP handlers drive
type Engine interface {
	Snapshot() node.Snapshot
	Blocks() []*blockchain.Block
	Block(index uint64) (*blockchain.Block, error)
	Mempool() []blockchain.Transaction

	SubmitTransaction(sender, receiver string, amount float64) (blockchain.Transaction, error)
	RemoveTransaction(id string) bool

	StartMining(ctx context.Context) (<-chan node.MineResult, error)
	StartRemine(ctx context.Context, index uint64) (<-chan node.MineResult, error)
	CancelMining() bool
	MiningState() node.MiningState

	TamperBlock(index uint64, changes node.BlockChanges) (*blockchain.Block, error)
	EditTransaction(index uint64, txIndex int, edit blockchain.TransactionEdit) (*blockchain.Block, error)
	RevalidateChain() blockchain.ValidationReport
	ResetChain() error

	Difficulty() int
	SetDifficulty(difficulty int) error

	Subscribe() <-chan node.Event
	Unsubscribe(ch <-chan node.Event)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  msg,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, node.ErrBlockNotFound):
		return http.StatusNotFound
	case errors.Is(err, node.ErrMiningInProgress):
		return http.StatusConflict
	case errors.Is(err, node.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, blockchain.ErrInvalidDifficulty),
		errors.Is(err, blockchain.ErrEmptySender),
		errors.Is(err, blockchain.ErrEmptyReceiver),
		errors.Is(err, blockchain.ErrInvalidAmount),
		errors.Is(err, node.ErrGenesisRemine),
		errors.Is(err, node.ErrTransactionIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func parseIndex(r *http.Request) (uint64, error) {
	raw := r.PathValue("index")
	index, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("block index must be a non-negative integer")
	}
	return index, nil
}
