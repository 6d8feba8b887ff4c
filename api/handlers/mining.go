package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// HandleMine starts mining the next block in the background. A second
// request while a run is active gets 409.
func HandleMine(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	results, err := engine.StartMining(context.WithoutCancel(r.Context()))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	state := engine.MiningState()
	go logResult(logger.With(zap.Uint64("index", state.Target)), "mining", results)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"index":  state.Target,
	})
}

func HandleCancelMining(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"cancelled": engine.CancelMining(),
	})
}

func HandleMiningState(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, engine.MiningState())
}

func HandleDifficulty(w http.ResponseWriter, r *http.Request, engine Engine) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]int{"difficulty": engine.Difficulty()})
	case http.MethodPut:
		var req struct {
			Difficulty int `json:"difficulty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := engine.SetDifficulty(req.Difficulty); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"difficulty": engine.Difficulty()})
	default:
		methodNotAllowed(w)
	}
}
