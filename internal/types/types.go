package types

import (
	"fmt"
	"time"
)

// Candle is one OHLCV bar for a fixed time bucket. Timestamp is the
// bucket-open instant. Candles are immutable once emitted; they are
// constructed only by feed decode or by aggregator merge.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Validate checks the OHLCV invariant: low <= {open, close} <= high
// and a non-negative volume.
func (c Candle) Validate() error {
	if c.Low > c.Open || c.Low > c.Close || c.Open > c.High || c.Close > c.High {
		return fmt.Errorf("candle %s violates low<=open,close<=high: o=%.2f h=%.2f l=%.2f c=%.2f",
			c.Timestamp.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s has negative volume %d", c.Timestamp.Format(time.RFC3339), c.Volume)
	}
	return nil
}

// HLC3 returns the typical price (high+low+close)/3 used by VWAP.
func (c Candle) HLC3() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// LTPC is one last-traded-price event from the live feed: price, time,
// quantity, plus previous close.
type LTPC struct {
	LTP float64   // last traded price
	LTT time.Time // last traded time
	LTQ int64     // last traded quantity
	CP  float64   // previous close
}

// IndicatorSample is one committed indicator value.
type IndicatorSample struct {
	Value     float64
	Timestamp time.Time
}

// IndicatorSnapshot is a point-in-time view of every indicator in a
// pipeline, keyed by indicator name.
type IndicatorSnapshot struct {
	Timestamp time.Time
	Values    map[string]float64
}

// SignalKind is the discrete decision emitted by the strategy.
type SignalKind string

const (
	SignalWait SignalKind = "WAIT"
	SignalBuy  SignalKind = "BUY"
	SignalHold SignalKind = "HOLD"
	SignalSell SignalKind = "SELL"
)

// StopLossLevel is the reserved level index for the stop-loss slot.
// It is carried on signals but never wired to an order.
const StopLossLevel = -2

// Level is one target price attached to a trade signal. Positive levels
// are profit targets ordered by ascending index.
type Level struct {
	Level       int
	TargetPrice float64
	Timestamp   time.Time
}

// TradeSignal is produced by the signal engine and consumed exactly once
// by the position controller.
type TradeSignal struct {
	Kind      SignalKind
	Price     float64
	Timestamp time.Time
	Levels    []Level
}

// ProfitLevels returns the positive-level entries in ascending level order.
func (s TradeSignal) ProfitLevels() []Level {
	out := make([]Level, 0, len(s.Levels))
	for _, l := range s.Levels {
		if l.Level > 0 {
			out = append(out, l)
		}
	}
	return out
}

// Side is the order transaction type.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType distinguishes market and limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus is the brokerage-side lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderOpen      OrderStatus = "open"
	OrderComplete  OrderStatus = "complete"
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderRequest is a validated order submission payload.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Type     OrderType
	Quantity int
	Price    float64 // 0 for market orders
	Tag      string

	// ReferencePrice is the last traded price at submission. Advisory:
	// simulated fills use it, the brokerage never sees it.
	ReferencePrice float64
}

// OrderState is a point-in-time status snapshot fetched from the
// brokerage. It must be re-fetched after every poll sleep, never cached
// across one.
type OrderState struct {
	OrderID         string
	Status          OrderStatus
	FilledQuantity  int
	PendingQuantity int
	AveragePrice    float64
	StatusMessage   string
}

// Terminal reports whether the order has reached a final state.
func (s OrderState) Terminal() bool {
	switch s.Status {
	case OrderComplete, OrderRejected, OrderCancelled:
		return true
	}
	return false
}

// OrderRef identifies a tracked order in the position controller's
// pending and executed books.
type OrderRef struct {
	OrderID string
	Tag     string
}

// OrderResult resolves one gateway submission: either a placed order
// reference or the placement error.
type OrderResult struct {
	Ref OrderRef
	Err error
}

// FeedUpdate is one decoded per-instrument live update: zero or one tick
// and zero or one completed base-interval candle.
type FeedUpdate struct {
	Symbol string
	Tick   *LTPC
	Candle *Candle
}
