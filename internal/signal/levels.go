// Package signal turns indicator snapshots and live ticks into trade
// signals via a pluggable decider, and attaches target price levels.
package signal

import (
	"time"

	"intraday-trader/internal/types"
)

// PlotLevels builds count ascending profit targets above basePrice,
// each pctStep percent further out, plus the stop-loss slot two steps
// below. The stop-loss entry is carried for logging and risk display;
// nothing downstream places an order against it.
func PlotLevels(basePrice float64, count int, pctStep float64, ts time.Time) []types.Level {
	levels := make([]types.Level, 0, count+1)
	for i := 1; i <= count; i++ {
		levels = append(levels, types.Level{
			Level:       i,
			TargetPrice: basePrice * (1 + pctStep*float64(i)/100),
			Timestamp:   ts,
		})
		if i == 2 {
			levels = append(levels, types.Level{
				Level:       types.StopLossLevel,
				TargetPrice: basePrice * (1 - 2*pctStep/100),
				Timestamp:   ts,
			})
		}
	}
	return levels
}
