package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chainlab/api"
	"chainlab/blockchain"
	"chainlab/node"
)

func newLogger(dev bool, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	defaults := node.DefaultConfig()

	// Command line flags
	httpPort := flag.String("http", "8372", "HTTP API port")
	difficulty := flag.Int("difficulty", defaults.Difficulty, "leading zero hex characters required for new blocks (1-5)")
	batch := flag.Int("batch", defaults.BatchSize, "maximum pending transactions per block")
	stride := flag.Uint64("progress-stride", defaults.ProgressStride, "attempts between mining progress events")
	hashAlg := flag.String("hash", defaults.HashAlgorithm, "block hash algorithm: sha256 or sha3-256")
	revalidateDelay := flag.Duration("revalidate-delay", node.DefaultRevalidateDelay, "debounce before revalidating after a tamper")
	cascade := flag.Bool("cascade", false, "re-mine every following block after a re-mine")
	dev := flag.Bool("dev", false, "human readable development logging")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger, err := newLogger(*dev, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create engine configuration
	config := defaults
	config.Difficulty = *difficulty
	config.BatchSize = *batch
	config.ProgressStride = *stride
	config.HashAlgorithm = *hashAlg
	config.RevalidateDelay = *revalidateDelay
	config.CascadeRemine = *cascade

	if err := config.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting chain node",
		zap.String("http_port", *httpPort),
		zap.Int("difficulty", config.Difficulty),
		zap.String("hash", config.HashAlgorithm),
		zap.Bool("cascade", config.CascadeRemine),
		zap.Int("max_difficulty", blockchain.MaxDifficulty))

	if err := api.RunHTTPNode(ctx, config, *httpPort, logger); err != nil {
		logger.Fatal("node stopped", zap.Error(err))
	}
}
