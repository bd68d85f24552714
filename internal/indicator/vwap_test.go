package indicator

import (
	"math"
	"testing"
	"time"

	"intraday-trader/internal/types"
)

func vwapCandle(min int, h, l, c float64, v int64) types.Candle {
	return types.Candle{
		Timestamp: time.Date(2025, 4, 7, 9, min, 0, 0, ist),
		Open:      c, High: h, Low: l, Close: c,
		Volume: v,
	}
}

func TestVWAPCumulative(t *testing.T) {
	v := NewVWAP()

	c1 := vwapCandle(15, 102, 98, 100, 100) // HLC3 = 100
	c2 := vwapCandle(20, 112, 108, 110, 300) // HLC3 = 110
	if err := v.Update(c1); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	s, ok := v.Current()
	if !ok || math.Abs(s.Value-100) > 1e-9 {
		t.Fatalf("vwap after first candle = %v, want 100", s.Value)
	}

	if err := v.Update(c2); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	s, _ = v.Current()
	// (100*100 + 110*300) / 400 = 107.5
	if math.Abs(s.Value-107.5) > 1e-9 {
		t.Errorf("vwap = %.6f, want 107.5", s.Value)
	}
	if v.CumulativeVolume() != 400 {
		t.Errorf("cumulative volume = %d, want 400", v.CumulativeVolume())
	}
}

func TestVWAPStaysWithinSessionRange(t *testing.T) {
	v := NewVWAP()
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, c := range []types.Candle{
		vwapCandle(15, 101, 99, 100, 50),
		vwapCandle(20, 104, 100, 103, 80),
		vwapCandle(25, 103, 98, 99, 120),
		vwapCandle(30, 106, 99, 105, 60),
	} {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
		if err := v.Update(c); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
		s, _ := v.Current()
		if s.Value < lo || s.Value > hi {
			t.Errorf("step %d: vwap %.4f outside session range [%.4f, %.4f]", i, s.Value, lo, hi)
		}
	}
}

func TestVWAPEstimateBufferClearedByUpdate(t *testing.T) {
	v := NewVWAP()
	if err := v.Update(vwapCandle(15, 102, 98, 100, 100)); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	partial := vwapCandle(16, 112, 108, 110, 100) // HLC3 = 110
	est, ok := v.Estimate(CandleInput(partial))
	if !ok {
		t.Fatal("expected candle estimate")
	}
	// (100*100 + 110*100) / 200 = 105
	if math.Abs(est-105) > 1e-9 {
		t.Errorf("estimate = %.6f, want 105", est)
	}

	// Committing the merged candle clears the estimation buffer, so the
	// same partial seen again is counted once, not twice.
	if err := v.Update(vwapCandle(20, 112, 108, 110, 100)); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	est2, ok := v.Estimate(CandleInput(partial))
	if !ok {
		t.Fatal("expected candle estimate after commit")
	}
	// (100*100 + 110*100 + 110*100) / 300 = 320/3*... = 106.666...
	want := (100.0*100 + 110*100 + 110*100) / 300
	if math.Abs(est2-want) > 1e-9 {
		t.Errorf("estimate after commit = %.6f, want %.6f", est2, want)
	}
	if v.CumulativeVolume() != 200 {
		t.Errorf("committed volume = %d, want 200 (estimates never commit)", v.CumulativeVolume())
	}
}

func TestVWAPEstimateNeedsCommittedValue(t *testing.T) {
	v := NewVWAP()
	if _, ok := v.Estimate(CandleInput(vwapCandle(15, 102, 98, 100, 100))); ok {
		t.Error("estimate before any committed candle must report ok=false")
	}
	if _, ok := v.Estimate(TickInput(types.LTPC{LTP: 100})); ok {
		t.Error("VWAP must not estimate from a bare tick")
	}
}
