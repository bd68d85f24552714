// Package engine wires the per-instrument pipeline together: feed
// updates in, aggregation, indicators, signals and orders out. The
// manager supervises one worker per subscribed instrument.
package engine

import (
	"context"
	"fmt"
	"time"

	"intraday-trader/internal/aggregate"
	"intraday-trader/internal/indicator"
	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/metrics"
	"intraday-trader/internal/position"
	"intraday-trader/internal/signal"
	"intraday-trader/internal/store"
	"intraday-trader/internal/tradelog"
	"intraday-trader/internal/types"
)

const (
	feedChanCapacity     = 512
	tickChanCapacity     = 256
	snapshotChanCapacity = 4
	signalChanCapacity   = 8
)

// Worker owns one instrument's full pipeline. All aggregator and
// pipeline access happens on its run goroutine.
type Worker struct {
	symbol   string
	quantity int
	cfg      *store.Config

	feed      interfaces.LiveFeed
	history   interfaces.HistoricalSource
	decider   interfaces.Decider
	submitter interfaces.OrderSubmitter
	orderAPI  interfaces.OrderAPI

	agg      *aggregate.Aggregator
	pipeline *indicator.Pipeline

	feedCh chan types.FeedUpdate
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker builds a worker with its aggregator and indicator pipeline
// configured but not yet warm-started.
func NewWorker(symbol string, quantity int, cfg *store.Config,
	feed interfaces.LiveFeed, history interfaces.HistoricalSource,
	decider interfaces.Decider, submitter interfaces.OrderSubmitter, orderAPI interfaces.OrderAPI) *Worker {

	pipeline := indicator.NewPipeline()
	for _, period := range cfg.Indicators.EMAPeriods {
		pipeline.Add(fmt.Sprintf("ema_%d", period), indicator.NewEMA(period))
	}
	if cfg.Indicators.VWAP {
		pipeline.Add("vwap", indicator.NewVWAP())
	}

	return &Worker{
		symbol:    symbol,
		quantity:  quantity,
		cfg:       cfg,
		feed:      feed,
		history:   history,
		decider:   decider,
		submitter: submitter,
		orderAPI:  orderAPI,
		agg:       aggregate.New(cfg.Aggregation.SpanMinutes),
		pipeline:  pipeline,
		feedCh:    make(chan types.FeedUpdate, feedChanCapacity),
		done:      make(chan struct{}),
	}
}

// Symbol returns the instrument's trading symbol.
func (w *Worker) Symbol() string { return w.symbol }

// Quantity returns the configured entry quantity.
func (w *Worker) Quantity() int { return w.quantity }

// Start warm-starts the indicators from history, subscribes the live
// feed and launches the pipeline goroutines.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.warmStart(ctx); err != nil {
		return fmt.Errorf("warm start %s: %w", w.symbol, err)
	}

	if err := w.feed.Subscribe(ctx, w.symbol, w.feedCh); err != nil {
		return fmt.Errorf("subscribe %s: %w", w.symbol, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	tickCh := make(chan types.LTPC, tickChanCapacity)
	snapshotCh := make(chan types.IndicatorSnapshot, snapshotChanCapacity)
	rawSignalCh := make(chan types.TradeSignal, signalChanCapacity)
	ctrlSignalCh := make(chan types.TradeSignal, signalChanCapacity)

	sigEngine := signal.NewEngine(w.symbol, w.decider, signal.Config{
		LevelCount:   w.cfg.Levels.Count,
		LevelPctStep: w.cfg.Levels.PercentStep,
	})
	controller := position.NewController(w.symbol, w.submitter, w.orderAPI, position.Config{
		Quantity:        w.quantity,
		TierRatios:      w.cfg.Orders.TierRatios,
		TickSize:        w.cfg.Orders.TickSize,
		PollInterval:    w.cfg.PollInterval(),
		MaxPollAttempts: w.cfg.Orders.MaxPollAttempts,
	})

	go sigEngine.Run(runCtx, snapshotCh, tickCh, rawSignalCh)
	go w.journalSignals(runCtx, rawSignalCh, ctrlSignalCh)
	go controller.Run(runCtx, ctrlSignalCh)
	go w.run(runCtx, tickCh, snapshotCh)

	logger.Info(ctx, "instrument worker started",
		"symbol", w.symbol, "quantity", w.quantity, "span_minutes", w.agg.Span())
	return nil
}

// Stop unsubscribes the feed and tears the pipeline down.
func (w *Worker) Stop(ctx context.Context) {
	if err := w.feed.Unsubscribe(ctx, w.symbol); err != nil {
		logger.Warn(ctx, "feed unsubscribe failed", "symbol", w.symbol, "error", err)
	}
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.done:
	case <-time.After(5 * time.Second):
		logger.Warn(ctx, "worker did not stop in time", "symbol", w.symbol)
	}
	logger.Info(ctx, "instrument worker stopped", "symbol", w.symbol)
}

// warmStart seeds the EMAs from the previous sessions' merged candles,
// then replays today's completed base candles through the live
// aggregator so the VWAP accumulates this session only.
func (w *Worker) warmStart(ctx context.Context) error {
	now := time.Now()

	prior, err := w.history.HistoricalCandles(ctx, w.symbol, now)
	if err != nil {
		return err
	}
	seedAgg := aggregate.New(w.agg.Span())
	seedMerged := seedAgg.Backfill(prior)
	if err := w.pipeline.Initialize(ctx, seedMerged); err != nil {
		// Partially seeded indicators log their own failure; the worker
		// still runs with whatever warmed up.
		logger.Warn(ctx, "indicator warm start incomplete", "symbol", w.symbol, "error", err)
	}

	intraday, err := w.history.IntradayCandles(ctx, w.symbol, now)
	if err != nil {
		return err
	}
	for _, merged := range w.agg.Backfill(intraday) {
		if err := w.pipeline.UpdateAll(ctx, merged); err != nil {
			logger.Warn(ctx, "indicator catch-up failed", "symbol", w.symbol, "error", err)
		}
	}

	logger.Info(ctx, "warm start complete",
		"symbol", w.symbol,
		"seed_candles", len(seedMerged),
		"intraday_candles", len(w.agg.Completed()))
	return nil
}

// run is the worker's event loop: feed updates fan out into the tick
// stream and, on merged-candle completion, a fresh indicator snapshot.
func (w *Worker) run(ctx context.Context, tickCh chan<- types.LTPC, snapshotCh chan types.IndicatorSnapshot) {
	defer close(w.done)

	// Push the warm-start snapshot so ticks are actionable before the
	// first live candle completes.
	if snap := w.pipeline.Snapshot(time.Now()); len(snap.Values) > 0 {
		snapshotCh <- snap
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-w.feedCh:
			if update.Candle != nil {
				w.onBaseCandle(ctx, *update.Candle, snapshotCh)
			}
			if update.Tick != nil {
				select {
				case tickCh <- *update.Tick:
				default:
					// Ticks are superseded by the next one anyway.
				}
			}
		}
	}
}

func (w *Worker) onBaseCandle(ctx context.Context, c types.Candle, snapshotCh chan types.IndicatorSnapshot) {
	merged, done := w.agg.Ingest(c)
	if !done {
		return
	}
	metrics.CandlesMerged.WithLabelValues(w.symbol).Inc()

	if err := w.pipeline.UpdateAll(ctx, merged); err != nil {
		logger.Warn(ctx, "indicator update errors", "symbol", w.symbol, "error", err)
	}
	snap := w.pipeline.Snapshot(merged.Timestamp)

	select {
	case snapshotCh <- snap:
	default:
		// Drop the oldest queued snapshot; only the newest matters.
		select {
		case <-snapshotCh:
		default:
		}
		snapshotCh <- snap
	}
}

// journalSignals copies signals to the trade journal on their way to
// the position controller.
func (w *Worker) journalSignals(ctx context.Context, in <-chan types.TradeSignal, out chan<- types.TradeSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-in:
			if !ok {
				return
			}
			levels := make(map[string]float64, len(sig.Levels))
			for _, l := range sig.Levels {
				levels[fmt.Sprintf("L%d", l.Level)] = l.TargetPrice
			}
			if err := tradelog.AppendSignal(tradelog.SignalEntry{
				Symbol: w.symbol,
				Kind:   string(sig.Kind),
				Price:  sig.Price,
				Levels: levels,
			}); err != nil {
				logger.Warn(ctx, "signal journal write failed", "symbol", w.symbol, "error", err)
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}
}
