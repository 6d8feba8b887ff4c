package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"chainlab/mocks"
)

type BotConfig struct {
	BaseURL  string
	MinDelay time.Duration
	MaxDelay time.Duration
	TxPerRun int
	Tamper   bool
}

// Bot plays a user of the simulator against a running node: it submits
// transactions, asks for blocks and now and then tampers with one
type Bot struct {
	Name   string
	Config BotConfig
	client *http.Client
	rng    *rand.Rand
	logger *zap.Logger
}

func NewBot(name string, config BotConfig, seed int64, logger *zap.Logger) (*Bot, error) {
	if name == "" || config.BaseURL == "" {
		return nil, errors.New("neither 'name' nor 'url' can be empty")
	}
	if config.MaxDelay < config.MinDelay {
		return nil, fmt.Errorf("max delay %s is below min delay %s", config.MaxDelay, config.MinDelay)
	}

	return &Bot{
		Name:   name,
		Config: config,
		client: &http.Client{Timeout: 5 * time.Second},
		rng:    mocks.NewRand(seed),
		logger: logger.With(zap.String("bot", name)),
	}, nil
}

func (bot *Bot) post(ctx context.Context, path string, body any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, bot.Config.BaseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := bot.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (bot *Bot) height(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bot.Config.BaseURL+"/api/chain/height", nil)
	if err != nil {
		return 0, err
	}
	resp, err := bot.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Height int `json:"height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Height, nil
}

// Act runs one round of behaviour
func (bot *Bot) Act(ctx context.Context) {
	for _, p := range mocks.GenerateTransactionParams(bot.rng, bot.Config.TxPerRun) {
		status, err := bot.post(ctx, "/api/transactions", p)
		if err != nil {
			bot.logger.Warn("failed to submit transaction", zap.Error(err))
			return
		}
		if status != http.StatusCreated {
			bot.logger.Warn("transaction rejected", zap.Int("status", status))
		}
	}

	status, err := bot.post(ctx, "/api/mine", nil)
	switch {
	case err != nil:
		bot.logger.Warn("failed to request mining", zap.Error(err))
	case status == http.StatusConflict:
		bot.logger.Debug("node busy, mining skipped")
	default:
		bot.logger.Info("mining requested", zap.Int("status", status))
	}

	if !bot.Config.Tamper || bot.rng.Intn(4) != 0 {
		return
	}
	height, err := bot.height(ctx)
	if err != nil || height < 2 {
		return
	}
	index := 1 + bot.rng.Intn(height-1)
	nonce := bot.rng.Uint64()
	if _, err := bot.post(ctx, fmt.Sprintf("/api/blocks/%d/tamper", index), map[string]any{"nonce": nonce}); err != nil {
		bot.logger.Warn("failed to tamper", zap.Error(err))
		return
	}
	bot.logger.Info("tampered with block", zap.Int("index", index))
}

func (bot *Bot) nextDelay() time.Duration {
	span := bot.Config.MaxDelay - bot.Config.MinDelay
	if span <= 0 {
		return bot.Config.MinDelay
	}
	return bot.Config.MinDelay + time.Duration(bot.rng.Int63n(int64(span)))
}

// Run acts at random intervals until ctx is done
func (bot *Bot) Run(ctx context.Context) {
	for {
		delay := bot.nextDelay()
		bot.logger.Debug("sleeping", zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		bot.Act(ctx)
	}
}

func main() {
	url := flag.String("url", "http://localhost:8372", "node HTTP address")
	numBots := flag.Int("bots", 3, "number of bots")
	minDelay := flag.Duration("min-delay", 2*time.Second, "shortest pause between rounds")
	maxDelay := flag.Duration("max-delay", 10*time.Second, "longest pause between rounds")
	txPerRun := flag.Int("tx", 3, "transactions submitted per round")
	tamper := flag.Bool("tamper", false, "occasionally tamper with a random block")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := BotConfig{
		BaseURL:  *url,
		MinDelay: *minDelay,
		MaxDelay: *maxDelay,
		TxPerRun: *txPerRun,
		Tamper:   *tamper,
	}

	done := make(chan struct{})
	for i := range *numBots {
		bot, err := NewBot(fmt.Sprintf("bot-%d", i+1), config, time.Now().UnixNano()+int64(i), logger)
		if err != nil {
			logger.Fatal("failed to create bot", zap.Error(err))
		}
		go func() {
			bot.Run(ctx)
			done <- struct{}{}
		}()
	}

	for range *numBots {
		<-done
	}
	logger.Info("bots stopped")
}
