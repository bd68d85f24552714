package position

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"intraday-trader/internal/types"
)

func TestTierQuantities(t *testing.T) {
	ratios := []int{50, 10, 15, 25}
	cases := []struct {
		total int
		want  []int
	}{
		{20, []int{10, 2, 3, 5}},
		{21, []int{10, 2, 3, 6}},
		{10, []int{5, 1, 1, 3}},
		{1, []int{0, 0, 0, 1}},
		{0, []int{0, 0, 0, 0}},
	}
	for _, tc := range cases {
		got := TierQuantities(tc.total, ratios)
		sum := 0
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("TierQuantities(%d)[%d] = %d, want %d", tc.total, i, got[i], tc.want[i])
			}
			sum += got[i]
		}
		if sum != tc.total {
			t.Errorf("TierQuantities(%d) sums to %d", tc.total, sum)
		}
	}
}

func TestRoundToTick(t *testing.T) {
	cases := []struct {
		price, want float64
	}{
		{101.01, 101.00},
		{101.03, 101.05},
		{101.075, 101.10},
		{2500.12, 2500.10},
	}
	for _, tc := range cases {
		if got := RoundToTick(tc.price, 0.05); !almost(got, tc.want) {
			t.Errorf("RoundToTick(%.3f) = %.4f, want %.2f", tc.price, got, tc.want)
		}
	}
}

func almost(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

// brokerFake plays both the gateway and the order API. Submissions
// resolve immediately with scripted statuses keyed by tag.
type brokerFake struct {
	placed    []types.OrderRequest
	cancelled []string
	statuses  map[string]types.OrderState // order ID -> state
	placeErr  map[string]error            // tag -> error
	nextID    int
}

func newBrokerFake() *brokerFake {
	return &brokerFake{
		statuses: make(map[string]types.OrderState),
		placeErr: make(map[string]error),
	}
}

func (b *brokerFake) Submit(_ context.Context, req types.OrderRequest) (<-chan types.OrderResult, error) {
	ch := make(chan types.OrderResult, 1)
	if err := b.placeErr[req.Tag]; err != nil {
		ch <- types.OrderResult{Err: err}
		return ch, nil
	}
	b.nextID++
	id := fmt.Sprintf("ORD-%d", b.nextID)
	b.placed = append(b.placed, req)
	if _, scripted := b.statuses[id]; !scripted {
		b.statuses[id] = types.OrderState{
			OrderID:        id,
			Status:         types.OrderComplete,
			FilledQuantity: req.Quantity,
			AveragePrice:   req.Price,
		}
	}
	ch <- types.OrderResult{Ref: types.OrderRef{OrderID: id, Tag: req.Tag}}
	return ch, nil
}

func (b *brokerFake) Place(_ context.Context, req types.OrderRequest) (types.OrderRef, error) {
	panic("controller must place through the gateway")
}

func (b *brokerFake) Status(_ context.Context, ref types.OrderRef) (types.OrderState, error) {
	state, ok := b.statuses[ref.OrderID]
	if !ok {
		return types.OrderState{}, errors.New("unknown order")
	}
	return state, nil
}

func (b *brokerFake) Cancel(_ context.Context, ref types.OrderRef) error {
	b.cancelled = append(b.cancelled, ref.OrderID)
	state := b.statuses[ref.OrderID]
	state.Status = types.OrderCancelled
	b.statuses[ref.OrderID] = state
	return nil
}

func (b *brokerFake) setStatus(id string, status types.OrderStatus, filled int) {
	state := b.statuses[id]
	state.OrderID = id
	state.Status = status
	state.FilledQuantity = filled
	b.statuses[id] = state
}

var testNow = time.Date(2025, 4, 7, 10, 30, 0, 0, istZone)

func newTestController(t *testing.T, b *brokerFake) *Controller {
	t.Helper()
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	c := NewController("RELIANCE", b, b, Config{
		Quantity:        20,
		TierRatios:      []int{50, 10, 15, 25},
		TickSize:        0.05,
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 5,
	})
	c.now = func() time.Time { return testNow }
	return c
}

func buySignal(price float64) types.TradeSignal {
	levels := []types.Level{
		{Level: 1, TargetPrice: price * 1.01, Timestamp: testNow},
		{Level: 2, TargetPrice: price * 1.02, Timestamp: testNow},
		{Level: types.StopLossLevel, TargetPrice: price * 0.98, Timestamp: testNow},
		{Level: 3, TargetPrice: price * 1.03, Timestamp: testNow},
		{Level: 4, TargetPrice: price * 1.04, Timestamp: testNow},
		{Level: 5, TargetPrice: price * 1.05, Timestamp: testNow},
	}
	return types.TradeSignal{Kind: types.SignalBuy, Price: price, Timestamp: testNow, Levels: levels}
}

func TestEntryPlacesTieredTargets(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)

	c.HandleSignal(context.Background(), buySignal(100))

	if c.Holding() != 20 {
		t.Fatalf("holding = %d, want 20", c.Holding())
	}
	if len(b.placed) != 5 {
		t.Fatalf("placed %d orders, want entry + 4 targets", len(b.placed))
	}

	entry := b.placed[0]
	if entry.Side != types.SideBuy || entry.Type != types.OrderTypeMarket || entry.Quantity != 20 || entry.Price != 0 {
		t.Errorf("unexpected entry order %+v", entry)
	}

	wantQty := []int{10, 2, 3, 5}
	wantPrice := []float64{101.00, 102.00, 103.00, 104.00}
	for i, req := range b.placed[1:] {
		if req.Side != types.SideSell || req.Type != types.OrderTypeLimit {
			t.Errorf("target %d is %s %s, want SELL LIMIT", i+1, req.Side, req.Type)
		}
		if req.Quantity != wantQty[i] {
			t.Errorf("target %d quantity = %d, want %d", i+1, req.Quantity, wantQty[i])
		}
		if !almost(req.Price, wantPrice[i]) {
			t.Errorf("target %d price = %.4f, want %.2f", i+1, req.Price, wantPrice[i])
		}
		if want := fmt.Sprintf("target-%d", i+1); req.Tag != want {
			t.Errorf("target %d tag = %q, want %q", i+1, req.Tag, want)
		}
	}
}

func TestTargetPricesSnapToTick(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)

	// 103.37 * 1.01 = 104.4037 -> 104.40, *1.02 = 105.4374 -> 105.45
	c.HandleSignal(context.Background(), buySignal(103.37))

	if len(b.placed) != 5 {
		t.Fatalf("placed %d orders, want 5", len(b.placed))
	}
	for i, req := range b.placed[1:] {
		ticks := req.Price / 0.05
		if !almost(ticks, float64(int64(ticks+0.5))) {
			t.Errorf("target %d price %.4f is not tick aligned", i+1, req.Price)
		}
	}
}

func TestRejectedEntryLeavesFlatPosition(t *testing.T) {
	b := newBrokerFake()
	// The first placed order gets ORD-1; script it rejected.
	b.statuses["ORD-1"] = types.OrderState{
		OrderID: "ORD-1", Status: types.OrderRejected, StatusMessage: "insufficient funds",
	}
	c := newTestController(t, b)

	c.HandleSignal(context.Background(), buySignal(100))

	if c.Holding() != 0 {
		t.Errorf("holding = %d after rejected entry, want 0", c.Holding())
	}
	if len(b.placed) != 1 {
		t.Errorf("placed %d orders, want only the rejected entry", len(b.placed))
	}
}

func TestStaleSignalIgnored(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)

	stale := buySignal(100)
	stale.Timestamp = testNow.AddDate(0, 0, -1)
	if err := c.HandleSignal(context.Background(), stale); !errors.Is(err, ErrStaleSignal) {
		t.Fatalf("err = %v, want ErrStaleSignal", err)
	}

	if len(b.placed) != 0 {
		t.Errorf("stale signal placed %d orders, want 0", len(b.placed))
	}
}

func TestSecondBuyIgnoredWhilePositioned(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)

	c.HandleSignal(context.Background(), buySignal(100))
	placed := len(b.placed)
	c.HandleSignal(context.Background(), buySignal(101))

	if len(b.placed) != placed {
		t.Errorf("second buy placed %d extra orders", len(b.placed)-placed)
	}
}

func TestExitSweepsOpenTargets(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)
	ctx := context.Background()

	c.HandleSignal(ctx, buySignal(100))

	// Targets got ORD-2..ORD-5. Two filled, one partially matched and
	// still open, one untouched.
	b.setStatus("ORD-2", types.OrderComplete, 10)
	b.setStatus("ORD-3", types.OrderComplete, 2)
	b.setStatus("ORD-4", types.OrderOpen, 1) // 1 of 3 matched
	b.setStatus("ORD-5", types.OrderOpen, 0)

	placedBefore := len(b.placed)
	c.HandleSignal(ctx, types.TradeSignal{Kind: types.SignalSell, Price: 102, Timestamp: testNow})

	if len(b.cancelled) != 2 {
		t.Fatalf("cancelled %d orders, want the two open targets", len(b.cancelled))
	}
	if got := len(b.placed) - placedBefore; got != 1 {
		t.Fatalf("sweep placed %d orders, want 1 consolidated market sell", got)
	}
	sweep := b.placed[len(b.placed)-1]
	if sweep.Side != types.SideSell || sweep.Type != types.OrderTypeMarket {
		t.Errorf("sweep order is %s %s, want SELL MARKET", sweep.Side, sweep.Type)
	}
	// 20 bought - 10 - 2 complete - 1 partial = 7 left to flatten.
	if sweep.Quantity != 7 {
		t.Errorf("sweep quantity = %d, want 7", sweep.Quantity)
	}
	if c.Holding() != 0 {
		t.Errorf("holding = %d after exit, want 0", c.Holding())
	}
}

// A failed consolidated sell must not resurrect shares the targets
// already sold: the counter reflects the fills, and a retried exit
// sweeps only what is actually left.
func TestFailedSweepKeepsTargetFills(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)
	ctx := context.Background()

	c.HandleSignal(ctx, buySignal(100))

	// Targets got ORD-2..ORD-5: 12 of 20 shares sold before the exit.
	b.setStatus("ORD-2", types.OrderComplete, 10)
	b.setStatus("ORD-3", types.OrderComplete, 2)
	b.setStatus("ORD-4", types.OrderOpen, 0)
	b.setStatus("ORD-5", types.OrderOpen, 0)
	// The consolidated sell (ORD-6) gets rejected.
	b.setStatus("ORD-6", types.OrderRejected, 0)

	c.HandleSignal(ctx, types.TradeSignal{Kind: types.SignalSell, Price: 99, Timestamp: testNow})

	if c.Holding() != 8 {
		t.Fatalf("holding after failed sweep = %d, want 8", c.Holding())
	}

	// A second SELL retries the sweep for the true remainder only.
	placedBefore := len(b.placed)
	c.HandleSignal(ctx, types.TradeSignal{Kind: types.SignalSell, Price: 99, Timestamp: testNow})

	if got := len(b.placed) - placedBefore; got != 1 {
		t.Fatalf("retried exit placed %d orders, want 1", got)
	}
	retry := b.placed[len(b.placed)-1]
	if retry.Quantity != 8 {
		t.Errorf("retried sweep quantity = %d, want 8", retry.Quantity)
	}
	if c.Holding() != 0 {
		t.Errorf("holding after retried sweep = %d, want 0", c.Holding())
	}
}

// The stale-date guard covers entries only: an off-date SELL still
// sweeps so an open position is never stranded.
func TestStaleSellStillSweeps(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)
	ctx := context.Background()

	c.HandleSignal(ctx, buySignal(100))
	b.setStatus("ORD-2", types.OrderOpen, 0)
	b.setStatus("ORD-3", types.OrderOpen, 0)
	b.setStatus("ORD-4", types.OrderOpen, 0)
	b.setStatus("ORD-5", types.OrderOpen, 0)

	stale := types.TradeSignal{Kind: types.SignalSell, Price: 99, Timestamp: testNow.AddDate(0, 0, -1)}
	if err := c.HandleSignal(ctx, stale); err != nil {
		t.Fatalf("stale sell returned %v, want nil", err)
	}

	if len(b.cancelled) != 4 {
		t.Errorf("cancelled %d targets, want 4", len(b.cancelled))
	}
	if c.Holding() != 0 {
		t.Errorf("holding = %d after stale sell, want 0", c.Holding())
	}
}

func TestExitWithAllTargetsFilledSkipsSweep(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)
	ctx := context.Background()

	c.HandleSignal(ctx, buySignal(100))
	// The fake resolves every order complete at full quantity already.
	placedBefore := len(b.placed)
	c.HandleSignal(ctx, types.TradeSignal{Kind: types.SignalSell, Price: 105, Timestamp: testNow})

	if len(b.placed) != placedBefore {
		t.Errorf("exit placed %d extra orders with nothing left to sell", len(b.placed)-placedBefore)
	}
	if c.Holding() != 0 {
		t.Errorf("holding = %d, want 0", c.Holding())
	}
}

func TestExitWithoutPositionIsNoop(t *testing.T) {
	b := newBrokerFake()
	c := newTestController(t, b)

	c.HandleSignal(context.Background(), types.TradeSignal{Kind: types.SignalSell, Price: 100, Timestamp: testNow})
	if len(b.placed) != 0 {
		t.Errorf("flat exit placed %d orders, want 0", len(b.placed))
	}
}

func TestEntryPlacementErrorAborts(t *testing.T) {
	b := newBrokerFake()
	b.placeErr["entry"] = errors.New("gateway unavailable")
	c := newTestController(t, b)

	c.HandleSignal(context.Background(), buySignal(100))
	if c.Holding() != 0 || len(b.placed) != 0 {
		t.Errorf("failed entry left holding=%d placed=%d", c.Holding(), len(b.placed))
	}
}
