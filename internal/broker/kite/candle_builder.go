package kite

import (
	"time"

	"intraday-trader/internal/types"
)

// minuteBuilder folds the raw tick stream of one instrument into
// 1-minute candles. Kite reports cumulative session volume, so the
// per-candle volume is the delta between the first and last tick of the
// bucket.
type minuteBuilder struct {
	bucket    time.Time
	candle    types.Candle
	startVol  int64
	lastVol   int64
	lastTrade time.Time
	open      bool
}

// push consumes one tick and returns the completed candle of the
// previous minute, if this tick opened a new one. Ticks older than the
// last accepted trade time are dropped.
func (b *minuteBuilder) push(ltp float64, ltt time.Time, cumulativeVolume int64) (types.Candle, bool) {
	if b.open && ltt.Before(b.lastTrade) {
		return types.Candle{}, false
	}

	bucket := ltt.Truncate(time.Minute)

	var completed types.Candle
	var done bool
	if b.open && bucket.After(b.bucket) {
		prevVol := b.lastVol
		completed = b.finish()
		done = true
		// The first trade of the new minute still belongs to it.
		b.startVol = prevVol
	}

	if !b.open {
		b.bucket = bucket
		b.candle = types.Candle{
			Timestamp: bucket,
			Open:      ltp,
			High:      ltp,
			Low:       ltp,
			Close:     ltp,
		}
		if !done {
			b.startVol = cumulativeVolume
		}
		b.open = true
	} else {
		if ltp > b.candle.High {
			b.candle.High = ltp
		}
		if ltp < b.candle.Low {
			b.candle.Low = ltp
		}
		b.candle.Close = ltp
	}

	b.lastVol = cumulativeVolume
	b.lastTrade = ltt
	return completed, done
}

// finish closes the current bucket and resets the builder.
func (b *minuteBuilder) finish() types.Candle {
	c := b.candle
	c.Volume = b.lastVol - b.startVol
	if c.Volume < 0 {
		// Session volume reset (new day or feed restart).
		c.Volume = 0
	}
	b.open = false
	return c
}
