package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"chainlab/api/handlers"
)

// Server represents the HTTP API server
type Server struct {
	engine handlers.Engine
	port   string
	mux    *http.ServeMux
	logger *zap.Logger
	http   *http.Server
}

// NewServer creates a new API server
func NewServer(engine handlers.Engine, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		engine: engine,
		port:   port,
		mux:    http.NewServeMux(),
		logger: logger.Named("api"),
	}

	server.setupRoutes()
	server.http = &http.Server{
		Addr:              ":" + port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

// setupRoutes configures all HTTP endpoints
func (s *Server) setupRoutes() {
	// Chain endpoints
	s.mux.HandleFunc("/api/chain", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChain(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/chain/height", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChainHeight(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/chain/head", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleChainHead(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/chain/validate", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleValidate(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/chain/reset", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleReset(w, r, s.engine, s.logger)
	})

	// Block endpoints
	s.mux.HandleFunc("/api/blocks/{index}", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleBlock(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/blocks/{index}/tamper", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTamper(w, r, s.engine, s.logger)
	})
	s.mux.HandleFunc("/api/blocks/{index}/remine", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleRemine(w, r, s.engine, s.logger)
	})

	// Transaction endpoints
	s.mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTransactions(w, r, s.engine, s.logger)
	})
	s.mux.HandleFunc("/api/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleTransaction(w, r, s.engine)
	})

	// Mining endpoints
	s.mux.HandleFunc("/api/mine", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleMine(w, r, s.engine, s.logger)
	})
	s.mux.HandleFunc("/api/mine/cancel", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleCancelMining(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/mining", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleMiningState(w, r, s.engine)
	})
	s.mux.HandleFunc("/api/difficulty", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleDifficulty(w, r, s.engine)
	})

	s.mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		handlers.HandleEvents(w, r, s.engine, s.logger)
	})
}

// Handler exposes the routes, e.g. for httptest
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// Start begins serving HTTP requests and blocks until Shutdown
func (s *Server) Start() error {
	s.logger.Info("starting HTTP API server", zap.String("port", s.port))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
