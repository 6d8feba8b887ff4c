package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"chainlab/blockchain"
	"chainlab/node"
)

// TamperRequest overwrites block fields, or edits a single transaction
// when TransactionIndex is set
type TamperRequest struct {
	node.BlockChanges
	TransactionIndex *int                        `json:"transaction_index,omitempty"`
	Transaction      *blockchain.TransactionEdit `json:"transaction,omitempty"`
}

func HandleBlock(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	block, err := engine.Block(index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func HandleTamper(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req TamperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var block *blockchain.Block
	if req.TransactionIndex != nil {
		if req.Transaction == nil {
			writeError(w, http.StatusBadRequest, "transaction edit required with transaction_index")
			return
		}
		block, err = engine.EditTransaction(index, *req.TransactionIndex, *req.Transaction)
	} else {
		block, err = engine.TamperBlock(index, req.BlockChanges)
	}
	if err != nil {
		logger.Debug("tamper rejected", zap.Uint64("index", index), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, block)
}

// HandleRemine starts re-mining in the background and answers 202 once the
// run holds the mining slot
func HandleRemine(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	index, err := parseIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := engine.StartRemine(context.WithoutCancel(r.Context()), index)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	go logResult(logger.With(zap.Uint64("index", index)), "remine", results)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"index":  index,
	})
}

func logResult(logger *zap.Logger, op string, results <-chan node.MineResult) {
	res := <-results
	switch {
	case res.Err != nil:
		logger.Warn(op+" failed", zap.Error(res.Err))
	case res.Outcome.Cancelled:
		logger.Info(op+" cancelled", zap.Bool("stale", res.Outcome.Stale))
	default:
		logger.Debug(op+" finished",
			zap.Uint64("nonce", res.Outcome.Result.Nonce),
			zap.Uint64s("cascaded", res.Outcome.Cascaded))
	}
}
