package indicator

import (
	"fmt"

	"intraday-trader/internal/ta"
	"intraday-trader/internal/types"
)

// EMA is an exponential moving average over merged-candle closes.
// It must be seeded from history before the first Update: the seed is
// the simple average of the last period closes.
type EMA struct {
	series
	period   int
	alpha    float64
	previous float64
	seeded   bool
}

// NewEMA creates an EMA with smoothing factor alpha = 2/(period+1).
func NewEMA(period int) *EMA {
	return &EMA{period: period, alpha: ta.Alpha(period)}
}

// NewEMAWithSmoothing overrides the smoothing window: alpha = 2/(smoothing+1).
func NewEMAWithSmoothing(period, smoothing int) *EMA {
	return &EMA{period: period, alpha: ta.Alpha(smoothing)}
}

// Period returns the EMA period.
func (e *EMA) Period() int {
	return e.period
}

var _ HistorySeeder = (*EMA)(nil)

// InitializeFromHistory seeds the EMA with the simple average of the
// last period closes of the supplied window.
func (e *EMA) InitializeFromHistory(candles []types.Candle) error {
	if len(candles) < e.period {
		return fmt.Errorf("%w: EMA(%d) given %d candles", ErrInsufficientHistory, e.period, len(candles))
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	sma := ta.SMA(closes, e.period)

	e.previous = sma
	e.seeded = true
	e.record(types.IndicatorSample{Value: sma, Timestamp: candles[len(candles)-1].Timestamp})
	return nil
}

// Update applies the EMA recurrence to the candle close.
func (e *EMA) Update(c types.Candle) error {
	if !e.seeded {
		return fmt.Errorf("%w: EMA(%d) needs InitializeFromHistory before Update", ErrUninitialized, e.period)
	}
	current := e.alpha*c.Close + (1-e.alpha)*e.previous
	e.previous = current
	e.record(types.IndicatorSample{Value: current, Timestamp: c.Timestamp})
	return nil
}

// Estimate returns the one-step EMA update for a live tick price without
// mutating the committed value.
func (e *EMA) Estimate(in EstimateInput) (float64, bool) {
	if in.Kind != EstimateTick || !e.seeded {
		return 0, false
	}
	return e.alpha*in.Tick.LTP + (1-e.alpha)*e.previous, true
}
