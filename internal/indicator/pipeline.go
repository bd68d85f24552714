package indicator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday-trader/internal/logger"
	"intraday-trader/internal/types"
)

// Pipeline fans one candle stream out to a named set of indicators in
// insertion order. A failure in one indicator never blocks the others.
type Pipeline struct {
	names      []string
	indicators map[string]Indicator
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{indicators: make(map[string]Indicator)}
}

// Add registers an indicator under name. Re-adding a name replaces the
// indicator but keeps its original position.
func (p *Pipeline) Add(name string, ind Indicator) {
	if _, ok := p.indicators[name]; !ok {
		p.names = append(p.names, name)
	}
	p.indicators[name] = ind
}

// Names returns the registered names in insertion order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Get returns the indicator registered under name.
func (p *Pipeline) Get(name string) (Indicator, bool) {
	ind, ok := p.indicators[name]
	return ind, ok
}

// Initialize warm-starts every HistorySeeder from the historical window.
// Indicators without history seeding are skipped. Seeding failures are
// collected and joined so one short history does not abort the rest.
func (p *Pipeline) Initialize(ctx context.Context, candles []types.Candle) error {
	var errs []error
	for _, name := range p.names {
		seeder, ok := p.indicators[name].(HistorySeeder)
		if !ok {
			continue
		}
		if err := seeder.InitializeFromHistory(candles); err != nil {
			logger.Warn(ctx, "indicator seed failed",
				"indicator", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// UpdateAll feeds one completed merged candle to every indicator in
// insertion order. Per-indicator errors are logged, collected and
// joined; the remaining indicators still receive the candle.
func (p *Pipeline) UpdateAll(ctx context.Context, c types.Candle) error {
	var errs []error
	for _, name := range p.names {
		if err := p.indicators[name].Update(c); err != nil {
			logger.Warn(ctx, "indicator update failed",
				"indicator", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot collects the current committed value of every indicator that
// has one. Indicators without a value yet are simply absent from the
// map.
func (p *Pipeline) Snapshot(ts time.Time) types.IndicatorSnapshot {
	snap := types.IndicatorSnapshot{
		Timestamp: ts,
		Values:    make(map[string]float64, len(p.names)),
	}
	for _, name := range p.names {
		if sample, ok := p.indicators[name].Current(); ok {
			snap.Values[name] = sample.Value
		}
	}
	return snap
}

// EstimateAll computes best-effort live estimates for the given input.
// Indicators that do not consume the input variant, or have no estimate
// yet, are left out of the result.
func (p *Pipeline) EstimateAll(in EstimateInput) map[string]float64 {
	out := make(map[string]float64, len(p.names))
	for _, name := range p.names {
		if v, ok := p.indicators[name].Estimate(in); ok {
			out[name] = v
		}
	}
	return out
}
