package signal

import (
	"math"
	"testing"
	"time"

	"intraday-trader/internal/types"
)

func TestPlotLevels(t *testing.T) {
	ts := time.Date(2025, 4, 7, 10, 0, 0, 0, time.FixedZone("IST", 19800))
	levels := PlotLevels(100, 5, 1.0, ts)

	if len(levels) != 6 {
		t.Fatalf("got %d levels, want 5 targets + stop-loss", len(levels))
	}

	wantTargets := map[int]float64{1: 101, 2: 102, 3: 103, 4: 104, 5: 105, types.StopLossLevel: 98}
	seen := map[int]bool{}
	for _, l := range levels {
		want, ok := wantTargets[l.Level]
		if !ok {
			t.Errorf("unexpected level index %d", l.Level)
			continue
		}
		if math.Abs(l.TargetPrice-want) > 1e-9 {
			t.Errorf("level %d target = %.4f, want %.4f", l.Level, l.TargetPrice, want)
		}
		if !l.Timestamp.Equal(ts) {
			t.Errorf("level %d timestamp = %v, want %v", l.Level, l.Timestamp, ts)
		}
		seen[l.Level] = true
	}
	if !seen[types.StopLossLevel] {
		t.Error("stop-loss level missing")
	}

	// Ascending profit targets in order of appearance.
	prev := 0.0
	for _, l := range levels {
		if l.Level < 0 {
			continue
		}
		if l.TargetPrice <= prev {
			t.Errorf("profit targets not ascending at level %d", l.Level)
		}
		prev = l.TargetPrice
	}
}

func TestPlotLevelsSignalFiltering(t *testing.T) {
	ts := time.Now()
	sig := types.TradeSignal{
		Kind:   types.SignalBuy,
		Price:  100,
		Levels: PlotLevels(100, 5, 1.0, ts),
	}
	profits := sig.ProfitLevels()
	if len(profits) != 5 {
		t.Fatalf("profit levels = %d, want 5 (stop-loss excluded)", len(profits))
	}
	for i, l := range profits {
		if l.Level != i+1 {
			t.Errorf("profit level %d has index %d", i, l.Level)
		}
	}
}
