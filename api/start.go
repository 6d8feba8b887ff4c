package api

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chainlab/node"
)

// RunHTTPNode builds an engine from config and serves it until ctx is done.
// This is what cmd/node uses.
func RunHTTPNode(ctx context.Context, config node.Config, httpPort string, logger *zap.Logger) error {
	engine, err := node.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Close()

	server := NewServer(engine, httpPort, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Closing the engine ends open event streams
	engine.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
