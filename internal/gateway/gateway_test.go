package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"intraday-trader/internal/types"
)

type fakeOrderAPI struct {
	mu       sync.Mutex
	placed   []types.OrderRequest
	placedAt []time.Time
	fail     map[int]error // call index -> error
	calls    int
}

func (f *fakeOrderAPI) Place(_ context.Context, req types.OrderRequest) (types.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	f.placedAt = append(f.placedAt, time.Now())
	if err, ok := f.fail[idx]; ok {
		return types.OrderRef{}, err
	}
	f.placed = append(f.placed, req)
	return types.OrderRef{OrderID: fmt.Sprintf("ORD-%d", idx), Tag: req.Tag}, nil
}

func (f *fakeOrderAPI) Status(context.Context, types.OrderRef) (types.OrderState, error) {
	return types.OrderState{}, errors.New("not implemented")
}

func (f *fakeOrderAPI) Cancel(context.Context, types.OrderRef) error {
	return errors.New("not implemented")
}

func validBuy(tag string) types.OrderRequest {
	return types.OrderRequest{
		Symbol:   "RELIANCE",
		Side:     types.SideBuy,
		Type:     types.OrderTypeLimit,
		Quantity: 10,
		Price:    2500.05,
		Tag:      tag,
	}
}

func TestSubmitValidation(t *testing.T) {
	g := New(&fakeOrderAPI{}, time.Millisecond)

	cases := []struct {
		name string
		req  types.OrderRequest
	}{
		{"zero quantity", types.OrderRequest{Symbol: "X", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 0}},
		{"negative quantity", types.OrderRequest{Symbol: "X", Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: -5}},
		{"limit without price", types.OrderRequest{Symbol: "X", Side: types.SideBuy, Type: types.OrderTypeLimit, Quantity: 1}},
		{"missing symbol", types.OrderRequest{Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 1}},
		{"unknown side", types.OrderRequest{Symbol: "X", Side: "SHORT", Type: types.OrderTypeMarket, Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := g.Submit(context.Background(), tc.req); !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
		})
	}
}

// A market order submitted with a price is accepted; the price is
// zeroed before it reaches the brokerage.
func TestMarketOrderPriceForcedToZero(t *testing.T) {
	api := &fakeOrderAPI{}
	g := New(api, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.Start(ctx)

	ch, err := g.Submit(ctx, types.OrderRequest{
		Symbol: "RELIANCE", Side: types.SideSell, Type: types.OrderTypeMarket, Quantity: 7, Price: 2501.5, Tag: "sweep",
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("placement failed: %v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("order never resolved")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.placed) != 1 || api.placed[0].Price != 0 {
		t.Fatalf("placed %+v, want one market order with price 0", api.placed)
	}
}

func TestOrdersPlacedInFIFOOrder(t *testing.T) {
	api := &fakeOrderAPI{}
	g := New(api, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.Start(ctx)

	var results []<-chan types.OrderResult
	for i := 0; i < 5; i++ {
		ch, err := g.Submit(ctx, validBuy(fmt.Sprintf("tag-%d", i)))
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		results = append(results, ch)
	}
	for i, ch := range results {
		select {
		case res := <-ch:
			if res.Err != nil {
				t.Fatalf("order %d failed: %v", i, res.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("order %d never resolved", i)
		}
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	for i, req := range api.placed {
		if want := fmt.Sprintf("tag-%d", i); req.Tag != want {
			t.Errorf("placement %d has tag %q, want %q", i, req.Tag, want)
		}
	}
}

func TestDelayAppliesAfterFailureToo(t *testing.T) {
	delay := 50 * time.Millisecond
	api := &fakeOrderAPI{fail: map[int]error{0: errors.New("rejected by rms")}}
	g := New(api, delay)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g.Start(ctx)

	ch1, err := g.Submit(ctx, validBuy("first"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	ch2, err := g.Submit(ctx, validBuy("second"))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	res1 := <-ch1
	if res1.Err == nil {
		t.Fatal("first order should have failed")
	}
	res2 := <-ch2
	if res2.Err != nil {
		t.Fatalf("second order failed: %v", res2.Err)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.placedAt) != 2 {
		t.Fatalf("placement attempts = %d, want 2", len(api.placedAt))
	}
	if gap := api.placedAt[1].Sub(api.placedAt[0]); gap < delay {
		t.Errorf("gap after failed placement = %v, want at least %v", gap, delay)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	g := New(&fakeOrderAPI{}, time.Millisecond)
	g.Stop()
	if _, err := g.Submit(context.Background(), validBuy("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestSubmitRespectsContext(t *testing.T) {
	// Fill the queue without a running worker so Submit must block,
	// then cancel.
	g := New(&fakeOrderAPI{}, time.Millisecond)
	for i := 0; i < queueCapacity; i++ {
		if _, err := g.Submit(context.Background(), validBuy("fill")); err != nil {
			t.Fatalf("fill submit %d failed: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Submit(ctx, validBuy("blocked")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}
