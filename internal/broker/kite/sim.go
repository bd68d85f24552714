package kite

import (
	"fmt"
	"sync"

	"intraday-trader/internal/types"
)

// simBook is the DRY_RUN order book. Market orders fill immediately at
// the requested quantity; limit orders rest open until cancelled, which
// mirrors how target orders behave at the brokerage and keeps the exit
// sweep exercised in dry runs.
type simBook struct {
	mu      sync.Mutex
	orders  map[string]types.OrderState
	lastRef map[string]float64
	nextID  int
}

func newSimBook() *simBook {
	return &simBook{
		orders:  make(map[string]types.OrderState),
		lastRef: make(map[string]float64),
	}
}

func (s *simBook) place(req types.OrderRequest) types.OrderRef {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("SIM-%06d", s.nextID)

	state := types.OrderState{OrderID: id}
	if req.Type == types.OrderTypeMarket {
		// The gateway zeroes Price on market orders, so the simulated
		// fill is stamped from the caller's reference price. Fall back
		// to the last price seen for the symbol.
		price := req.ReferencePrice
		if price == 0 {
			price = s.lastRef[req.Symbol]
		}
		state.Status = types.OrderComplete
		state.FilledQuantity = req.Quantity
		state.AveragePrice = price
		if price != 0 {
			s.lastRef[req.Symbol] = price
		}
	} else {
		state.Status = types.OrderOpen
		state.PendingQuantity = req.Quantity
		s.lastRef[req.Symbol] = req.Price
	}
	s.orders[id] = state
	return types.OrderRef{OrderID: id, Tag: req.Tag}
}

func (s *simBook) status(ref types.OrderRef) (types.OrderState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.orders[ref.OrderID]
	if !ok {
		return types.OrderState{}, fmt.Errorf("unknown simulated order %s", ref.OrderID)
	}
	return state, nil
}

func (s *simBook) cancel(ref types.OrderRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.orders[ref.OrderID]
	if !ok {
		return fmt.Errorf("unknown simulated order %s", ref.OrderID)
	}
	if state.Status == types.OrderOpen || state.Status == types.OrderPending {
		state.Status = types.OrderCancelled
		s.orders[ref.OrderID] = state
	}
	return nil
}
