package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intraday-trader/internal/broker/brokerobs"
	"intraday-trader/internal/broker/kite"
	"intraday-trader/internal/engine"
	"intraday-trader/internal/eod"
	"intraday-trader/internal/eod/eodobs"
	"intraday-trader/internal/gateway"
	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/store"
	"intraday-trader/internal/strategy"
	"intraday-trader/internal/trace"
	"intraday-trader/internal/tradelog"
	"intraday-trader/internal/web"

	"github.com/joho/godotenv"
)

const eodCheckInterval = 60 * time.Second

// initializeSystem initializes logger, tracer, and EOD summarizer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer()))
	return nil
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("TRADER_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old tradelog files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeBroker builds the brokerage client with observability
func initializeBroker(ctx context.Context, cfg *store.Config) (interfaces.OrderAPI, interfaces.HistoricalSource, error) {
	client, err := kite.NewClient(kite.Params{
		Mode:        cfg.Mode,
		APIKey:      os.Getenv("KITE_API_KEY"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
		Tokens:      cfg.InstrumentTokens,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	return brokerobs.Wrap(client), client, nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer trace.Shutdown(context.Background())

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx)

	orderAPI, history, err := initializeBroker(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Broker initialization failed", err)
		os.Exit(1)
	}

	gw := gateway.New(orderAPI, cfg.RateLimitDelay())
	gw.Start(ctx)
	defer gw.Stop()

	feed := kite.NewFeed(os.Getenv("KITE_API_KEY"), os.Getenv("KITE_ACCESS_TOKEN"), cfg.InstrumentTokens, cfg.ReconnectDelay())

	manager := engine.NewManager(cfg, feed, history, strategy.NewNoopDecider(), gw, orderAPI)
	if err := manager.Start(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Manager start failed", err)
		os.Exit(1)
	}

	srv := web.NewServer(cfg.WebAddr, manager)
	srv.Start(ctx)

	logger.Info(ctx, "Trader started",
		"mode", cfg.Mode,
		"web_addr", cfg.WebAddr,
		"instruments", len(cfg.Instruments))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	eodTick := time.NewTicker(eodCheckInterval)
	defer eodTick.Stop()

	for {
		select {
		case <-eodTick.C:
			if ok, _ := eod.ShouldRunNow(); ok {
				if p, err := eod.SummarizeToday(); err == nil && p != "" {
					logger.Info(ctx, "EOD CSV written", "path", p)
				}
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Web server shutdown failed", "error", err)
			}
			manager.Stop(shutdownCtx)
			shutdownCancel()
			if p, err := eod.SummarizeToday(); err == nil && p != "" {
				logger.Info(ctx, "EOD CSV written", "path", p)
			}
			return
		case <-ctx.Done():
			return
		}
	}
}
