package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

func HandleChain(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, engine.Snapshot())
}

func HandleChainHeight(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	response := map[string]int{
		"height": len(engine.Blocks()),
	}
	writeJSON(w, http.StatusOK, response)
}

func HandleChainHead(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	blocks := engine.Blocks()
	if len(blocks) == 0 {
		writeError(w, http.StatusNotFound, "chain has no blocks")
		return
	}
	writeJSON(w, http.StatusOK, blocks[len(blocks)-1])
}

func HandleValidate(w http.ResponseWriter, r *http.Request, engine Engine) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, engine.RevalidateChain())
}

func HandleReset(w http.ResponseWriter, r *http.Request, engine Engine, logger *zap.Logger) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	if err := engine.ResetChain(); err != nil {
		logger.Error("reset failed", zap.Error(err))
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Chain reset to a new genesis block",
	})
}
