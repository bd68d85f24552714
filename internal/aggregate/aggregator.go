// Package aggregate converts a base-interval candle stream (1 minute)
// into fixed-span merged candles (e.g. 5 minute). It handles historical
// backfill and live incremental updates with identical merge semantics.
package aggregate

import (
	"sort"

	"intraday-trader/internal/types"
)

// Aggregator merges runs of span consecutive base candles into one
// completed candle. It keeps a sliding window of the most recent span
// base candles for live ingestion; duplicates by identical timestamp are
// rejected to avoid double-counting a replayed feed message.
//
// Known limitation: a genuinely out-of-order live candle (earlier than
// the window tail) is appended as-is, not reordered.
type Aggregator struct {
	span      int
	window    []types.Candle
	completed []types.Candle
}

// New creates an aggregator producing span-minute candles from 1-minute
// input.
func New(span int) *Aggregator {
	return &Aggregator{
		span:   span,
		window: make([]types.Candle, 0, span),
	}
}

// Span returns the number of base candles per merged candle.
func (a *Aggregator) Span() int {
	return a.span
}

// Backfill sorts the given base candles by timestamp, merges each
// consecutive run of exactly span candles, appends the results to the
// completed list and returns them. Any remainder shorter than span seeds
// the live carry-over window.
func (a *Aggregator) Backfill(candles []types.Candle) []types.Candle {
	sorted := make([]types.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	merged := make([]types.Candle, 0, len(sorted)/a.span)
	buf := make([]types.Candle, 0, a.span)
	for _, c := range sorted {
		buf = append(buf, c)
		if len(buf) == a.span {
			if m, ok := merge(buf); ok {
				merged = append(merged, m)
			}
			buf = buf[:0]
		}
	}
	a.completed = append(a.completed, merged...)

	// Remainder carries over into the live window.
	for _, c := range buf {
		a.push(c)
	}
	return merged
}

// Ingest appends one live base candle to the sliding window and, when
// the candle closes a span-aligned bucket with a full window, merges the
// window into a completed candle. The second return value is false when
// no candle completed, which is the common case and not an error.
func (a *Aggregator) Ingest(c types.Candle) (types.Candle, bool) {
	if n := len(a.window); n > 0 && c.Timestamp.Equal(a.window[n-1].Timestamp) {
		// Replayed base candle; counting it again would inflate volume.
		return types.Candle{}, false
	}
	a.push(c)

	if c.Timestamp.Minute()%a.span == a.span-1 && len(a.window) == a.span {
		if m, ok := merge(a.window); ok {
			a.completed = append(a.completed, m)
			return m, true
		}
	}
	return types.Candle{}, false
}

// Completed returns all merged candles produced so far, oldest first.
func (a *Aggregator) Completed() []types.Candle {
	return a.completed
}

// push appends to the window, evicting the oldest entry when full.
func (a *Aggregator) push(c types.Candle) {
	if len(a.window) == a.span {
		copy(a.window, a.window[1:])
		a.window[a.span-1] = c
		return
	}
	a.window = append(a.window, c)
}

// merge folds a run of base candles into one: open from the first,
// close from the last, extreme high/low, summed volume, and the first
// candle's timestamp (bucket-open convention).
func merge(candles []types.Candle) (types.Candle, bool) {
	if len(candles) == 0 {
		return types.Candle{}, false
	}
	out := types.Candle{
		Timestamp: candles[0].Timestamp,
		Open:      candles[0].Open,
		High:      candles[0].High,
		Low:       candles[0].Low,
		Close:     candles[len(candles)-1].Close,
	}
	for _, c := range candles {
		if c.High > out.High {
			out.High = c.High
		}
		if c.Low < out.Low {
			out.Low = c.Low
		}
		out.Volume += c.Volume
	}
	return out, true
}
