package indicator

import (
	"intraday-trader/internal/types"
)

// VWAP is the cumulative volume-weighted average price over merged
// candles, using the typical price (high+low+close)/3.
type VWAP struct {
	series
	cumPriceVolume float64
	cumVolume      int64

	// Uncommitted base candles buffered for estimation only. Cleared on
	// every committed Update so the next estimate cannot double count.
	pending []types.Candle
}

// NewVWAP creates an empty VWAP accumulator.
func NewVWAP() *VWAP {
	return &VWAP{}
}

// Update folds one merged candle into the cumulative sums.
func (v *VWAP) Update(c types.Candle) error {
	v.cumPriceVolume += c.HLC3() * float64(c.Volume)
	v.cumVolume += c.Volume

	value := 0.0
	if v.cumVolume != 0 {
		value = v.cumPriceVolume / float64(v.cumVolume)
	}
	v.record(types.IndicatorSample{Value: value, Timestamp: c.Timestamp})
	v.pending = v.pending[:0]
	return nil
}

// Estimate buffers the uncommitted base candle and projects the VWAP as
// if the whole buffered run were merged in. Committed sums are never
// touched.
func (v *VWAP) Estimate(in EstimateInput) (float64, bool) {
	if in.Kind != EstimateCandle {
		return 0, false
	}
	if _, ok := v.Current(); !ok {
		return 0, false
	}
	v.pending = append(v.pending, in.Candle)

	bufPV, bufVol := 0.0, int64(0)
	for _, c := range v.pending {
		bufPV += c.HLC3() * float64(c.Volume)
		bufVol += c.Volume
	}
	totalVol := v.cumVolume + bufVol
	if totalVol == 0 {
		return 0, false
	}
	return (v.cumPriceVolume + bufPV) / float64(totalVol), true
}

// CumulativeVolume returns the committed volume sum.
func (v *VWAP) CumulativeVolume() int64 {
	return v.cumVolume
}
