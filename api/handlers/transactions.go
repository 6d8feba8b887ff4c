package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type transactionRequest struct {
	Sender   string  `json:"sender"`
	Receiver string  `json:"receiver"`
	Amount   float64 `json:"amount"`
}

func HandleTransactions(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, engine.Mempool())
	case http.MethodPost:
		handleSubmitTransaction(w, r, engine, logger)
	default:
		methodNotAllowed(w)
	}
}

func handleSubmitTransaction(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Debug("failed to decode transaction", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	tx, err := engine.SubmitTransaction(req.Sender, req.Receiver, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":      "success",
		"transaction": tx,
	})
}

// HandleTransaction serves /api/transactions/{id}
func HandleTransaction(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}

	id := r.PathValue("id")
	if !engine.RemoveTransaction(id) {
		writeError(w, http.StatusNotFound, "transaction not pending: "+id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"id":     id,
	})
}
