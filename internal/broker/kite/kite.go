// Package kite adapts the Zerodha Kite Connect REST and WebSocket APIs
// to the historical-candle, order and live-feed interfaces. In DRY_RUN
// mode orders are tracked in an in-memory book instead of hitting the
// brokerage.
package kite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/types"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

const (
	candleInterval = "minute"

	// How many calendar days of 1-minute history to request for
	// indicator warm starts. Weekends and holidays thin this out, so it
	// is deliberately generous.
	historyDays = 7
)

var istZone = time.FixedZone("IST", 5*3600+1800)

// Params configures the Kite client.
type Params struct {
	Mode        string // DRY_RUN or LIVE
	APIKey      string
	AccessToken string
	Exchange    string
	Tokens      map[string]uint32 // symbol -> instrument token
}

// Client talks to Kite Connect for historical candles and order
// management.
type Client struct {
	kc     *kiteconnect.Client
	p      Params
	mapper *instrumentMapper
	sim    *simBook
}

var (
	_ interfaces.HistoricalSource = (*Client)(nil)
	_ interfaces.OrderAPI         = (*Client)(nil)
)

// NewClient creates a Kite client. In LIVE mode the API key and access
// token must be set.
func NewClient(p Params) (*Client, error) {
	c := &Client{
		p:      p,
		mapper: newInstrumentMapper(p.Tokens),
	}
	if p.Mode == "DRY_RUN" {
		c.sim = newSimBook()
	} else if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("live mode requires KITE_API_KEY and KITE_ACCESS_TOKEN")
	}

	c.kc = kiteconnect.New(p.APIKey)
	c.kc.SetAccessToken(p.AccessToken)
	return c, nil
}

// HistoricalCandles returns 1-minute candles of the sessions preceding
// day, oldest first.
func (c *Client) HistoricalCandles(ctx context.Context, symbol string, day time.Time) ([]types.Candle, error) {
	to := startOfDay(day)
	from := to.AddDate(0, 0, -historyDays)
	return c.fetchCandles(ctx, symbol, from, to)
}

// IntradayCandles returns day's own 1-minute candles completed so far,
// oldest first.
func (c *Client) IntradayCandles(ctx context.Context, symbol string, day time.Time) ([]types.Candle, error) {
	return c.fetchCandles(ctx, symbol, startOfDay(day), day)
}

func (c *Client) fetchCandles(_ context.Context, symbol string, from, to time.Time) ([]types.Candle, error) {
	token, ok := c.mapper.getToken(symbol)
	if !ok {
		return nil, fmt.Errorf("no instrument token configured for %s", symbol)
	}

	data, err := c.kc.GetHistoricalData(int(token), candleInterval, from, to, false, false)
	if err != nil {
		return nil, fmt.Errorf("historical data fetch for %s: %w", symbol, err)
	}

	candles := make([]types.Candle, 0, len(data))
	for _, d := range data {
		candles = append(candles, types.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		})
	}
	return candles, nil
}

// Place submits one order. DRY_RUN orders go to the in-memory book.
func (c *Client) Place(ctx context.Context, req types.OrderRequest) (types.OrderRef, error) {
	if c.sim != nil {
		return c.sim.place(req), nil
	}

	params := kiteconnect.OrderParams{
		Exchange:        c.p.Exchange,
		Tradingsymbol:   req.Symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         kiteconnect.ProductMIS,
		OrderType:       orderType(req.Type),
		TransactionType: transactionType(req.Side),
		Quantity:        req.Quantity,
		Tag:             req.Tag,
	}
	if req.Type == types.OrderTypeLimit {
		params.Price = req.Price
	}

	resp, err := c.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	if err != nil {
		return types.OrderRef{}, fmt.Errorf("place %s %s x%d: %w", req.Side, req.Symbol, req.Quantity, err)
	}
	return types.OrderRef{OrderID: resp.OrderID, Tag: req.Tag}, nil
}

// Status fetches the latest brokerage-side state of an order.
func (c *Client) Status(ctx context.Context, ref types.OrderRef) (types.OrderState, error) {
	if c.sim != nil {
		return c.sim.status(ref)
	}

	history, err := c.kc.GetOrderHistory(ref.OrderID)
	if err != nil {
		return types.OrderState{}, fmt.Errorf("order history for %s: %w", ref.OrderID, err)
	}
	if len(history) == 0 {
		return types.OrderState{}, fmt.Errorf("order %s has no history", ref.OrderID)
	}

	latest := history[len(history)-1]
	return types.OrderState{
		OrderID:         latest.OrderID,
		Status:          mapStatus(latest.Status),
		FilledQuantity:  int(latest.FilledQuantity),
		PendingQuantity: int(latest.PendingQuantity),
		AveragePrice:    latest.AveragePrice,
		StatusMessage:   latest.StatusMessage,
	}, nil
}

// Cancel cancels an open order.
func (c *Client) Cancel(ctx context.Context, ref types.OrderRef) error {
	if c.sim != nil {
		return c.sim.cancel(ref)
	}

	if _, err := c.kc.CancelOrder(kiteconnect.VarietyRegular, ref.OrderID, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", ref.OrderID, err)
	}
	return nil
}

func orderType(t types.OrderType) string {
	if t == types.OrderTypeLimit {
		return kiteconnect.OrderTypeLimit
	}
	return kiteconnect.OrderTypeMarket
}

func transactionType(s types.Side) string {
	if s == types.SideSell {
		return kiteconnect.TransactionTypeSell
	}
	return kiteconnect.TransactionTypeBuy
}

// mapStatus normalizes Kite order statuses. Transitional statuses such
// as PUT ORDER REQ RECEIVED and VALIDATION PENDING map to pending.
func mapStatus(s string) types.OrderStatus {
	switch strings.ToUpper(s) {
	case "COMPLETE":
		return types.OrderComplete
	case "REJECTED":
		return types.OrderRejected
	case "CANCELLED":
		return types.OrderCancelled
	case "OPEN", "TRIGGER PENDING":
		return types.OrderOpen
	default:
		return types.OrderPending
	}
}

func startOfDay(t time.Time) time.Time {
	d := t.In(istZone)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, istZone)
}
