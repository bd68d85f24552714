// Package indicator provides streaming technical indicators over a
// merged-candle sequence, with real-time estimates between candle
// completions.
package indicator

import (
	"errors"

	"intraday-trader/internal/types"
)

var (
	// ErrInsufficientHistory is returned when a history-seeded indicator
	// is given fewer candles than its period requires.
	ErrInsufficientHistory = errors.New("insufficient historical candles")

	// ErrUninitialized is returned by Update before history seeding.
	ErrUninitialized = errors.New("indicator not initialized")
)

// EstimateKind tags the input variant an estimate call carries.
type EstimateKind int

const (
	// EstimateTick carries a last-traded price.
	EstimateTick EstimateKind = iota + 1
	// EstimateCandle carries a not-yet-committed base-interval candle.
	EstimateCandle
)

// EstimateInput is the discriminated estimate context: either a live
// tick or a partial (uncommitted) base-interval candle. Each indicator
// declares which variant it consumes by returning ok=false for the
// other.
type EstimateInput struct {
	Kind   EstimateKind
	Tick   types.LTPC
	Candle types.Candle
}

// TickInput wraps a tick for estimation.
func TickInput(t types.LTPC) EstimateInput {
	return EstimateInput{Kind: EstimateTick, Tick: t}
}

// CandleInput wraps an uncommitted base candle for estimation.
func CandleInput(c types.Candle) EstimateInput {
	return EstimateInput{Kind: EstimateCandle, Candle: c}
}

// Indicator maintains one streaming statistic over completed merged
// candles plus a best-effort real-time estimate between completions.
type Indicator interface {
	// Update incorporates one completed merged candle into cumulative
	// state and appends a new sample.
	Update(c types.Candle) error

	// Estimate computes a non-persisted value reflecting data not yet
	// folded into the committed state. It never mutates committed
	// cumulative state. ok is false when the input variant does not
	// apply to this indicator or no estimate is available yet.
	Estimate(in EstimateInput) (value float64, ok bool)

	// Current returns the most recent committed sample.
	Current() (types.IndicatorSample, bool)

	// History returns all committed samples, oldest first.
	History() []types.IndicatorSample
}

// HistorySeeder is implemented by indicators that warm-start from a
// historical candle window. Indicators without it are skipped during
// pipeline initialization, not errored.
type HistorySeeder interface {
	InitializeFromHistory(candles []types.Candle) error
}

// series is the shared append-only sample history.
type series struct {
	samples []types.IndicatorSample
}

func (s *series) record(sample types.IndicatorSample) {
	s.samples = append(s.samples, sample)
}

func (s *series) Current() (types.IndicatorSample, bool) {
	if len(s.samples) == 0 {
		return types.IndicatorSample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

func (s *series) History() []types.IndicatorSample {
	return s.samples
}
