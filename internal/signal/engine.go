package signal

import (
	"context"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/metrics"
	"intraday-trader/internal/types"
)

// Config sets level plotting for emitted signals.
type Config struct {
	LevelCount   int
	LevelPctStep float64
}

// Engine consumes the per-instrument snapshot and tick streams and
// emits trade signals. Ticks that arrive before the first indicator
// snapshot are dropped: deciding on indicator-free data is worse than
// waiting one candle.
type Engine struct {
	symbol   string
	decider  interfaces.Decider
	cfg      Config
	snapshot *types.IndicatorSnapshot
}

// NewEngine creates a signal engine for one instrument.
func NewEngine(symbol string, decider interfaces.Decider, cfg Config) *Engine {
	return &Engine{symbol: symbol, decider: decider, cfg: cfg}
}

// Run loops until ctx is cancelled or both input channels close,
// forwarding non-WAIT decisions to out. It never closes out.
func (e *Engine) Run(ctx context.Context, snapshots <-chan types.IndicatorSnapshot, ticks <-chan types.LTPC, out chan<- types.TradeSignal) {
	for snapshots != nil || ticks != nil {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			e.snapshot = &snap
		case tick, ok := <-ticks:
			if !ok {
				ticks = nil
				continue
			}
			e.onTick(ctx, tick, out)
		}
	}
}

func (e *Engine) onTick(ctx context.Context, tick types.LTPC, out chan<- types.TradeSignal) {
	if e.snapshot == nil {
		metrics.TicksDropped.WithLabelValues(e.symbol).Inc()
		logger.Debug(ctx, "tick before first snapshot, dropped",
			"symbol", e.symbol, "ltp", tick.LTP)
		return
	}

	kind, err := e.decider.Decide(ctx, e.symbol, *e.snapshot, tick)
	if err != nil {
		logger.ErrorWithErr(ctx, "decider failed", err, "symbol", e.symbol)
		return
	}
	if kind == types.SignalWait {
		return
	}

	// Every signal carries the current level plot, not just BUY; the
	// consumer decides what to do with it.
	sig := types.TradeSignal{
		Kind:      kind,
		Price:     tick.LTP,
		Timestamp: tick.LTT,
		Levels:    PlotLevels(tick.LTP, e.cfg.LevelCount, e.cfg.LevelPctStep, tick.LTT),
	}

	metrics.SignalsEmitted.WithLabelValues(e.symbol, string(kind)).Inc()
	logger.Signal(ctx, e.symbol, string(kind), tick.LTP,
		"levels", len(sig.Levels))

	select {
	case out <- sig:
	case <-ctx.Done():
	}
}
