package position

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/tradelog"
	"intraday-trader/internal/types"
)

var istZone = time.FixedZone("IST", 5*3600+1800)

// ErrStaleSignal marks a signal whose last-traded time falls outside
// today's IST session. Stale signals must never place live orders.
var ErrStaleSignal = errors.New("signal from a previous session")

// Config tunes order sizing and status polling.
type Config struct {
	Quantity        int
	TierRatios      []int
	TickSize        float64
	PollInterval    time.Duration
	MaxPollAttempts int
}

type sellOrder struct {
	ref      types.OrderRef
	quantity int
}

// Controller consumes trade signals for one instrument and drives the
// position through entry, tiered exits and the final sweep. It is not
// goroutine-safe; exactly one Run loop owns it.
type Controller struct {
	symbol    string
	submitter interfaces.OrderSubmitter
	api       interfaces.OrderAPI
	cfg       Config

	holding      int
	pendingSells []sellOrder

	now func() time.Time
}

// NewController creates a flat controller.
func NewController(symbol string, submitter interfaces.OrderSubmitter, api interfaces.OrderAPI, cfg Config) *Controller {
	return &Controller{
		symbol:    symbol,
		submitter: submitter,
		api:       api,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Holding returns the share count currently attributed to the position.
func (c *Controller) Holding() int {
	return c.holding
}

// Run consumes signals until ctx is cancelled or the channel closes.
func (c *Controller) Run(ctx context.Context, signals <-chan types.TradeSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			if err := c.HandleSignal(ctx, sig); err != nil {
				logger.Warn(ctx, "signal not actioned",
					"symbol", c.symbol, "kind", sig.Kind, "error", err)
			}
		}
	}
}

// HandleSignal applies one trade signal to the position state machine.
// Only BUY carries the stale-date guard: a SELL must always sweep, or
// an off-date timestamp could strand an open position.
func (c *Controller) HandleSignal(ctx context.Context, sig types.TradeSignal) error {
	switch sig.Kind {
	case types.SignalBuy:
		if !c.sameSessionDay(sig.Timestamp) {
			logger.PositionAlert(ctx, c.symbol, "stale_signal",
				"signal_time", sig.Timestamp, "now", c.now())
			return ErrStaleSignal
		}
		c.enter(ctx, sig)
	case types.SignalSell:
		c.exit(ctx, sig.Price)
	case types.SignalHold:
		logger.Debug(ctx, "holding position", "symbol", c.symbol, "shares", c.holding)
	}
	return nil
}

// sameSessionDay guards against replayed signals from a previous
// session: the last-traded time must fall on today's IST date.
func (c *Controller) sameSessionDay(ts time.Time) bool {
	a := ts.In(istZone)
	b := c.now().In(istZone)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (c *Controller) enter(ctx context.Context, sig types.TradeSignal) {
	if c.holding > 0 {
		logger.Debug(ctx, "buy signal while already positioned, ignored",
			"symbol", c.symbol, "shares", c.holding)
		return
	}

	entry := types.OrderRequest{
		Symbol:         c.symbol,
		Side:           types.SideBuy,
		Type:           types.OrderTypeMarket,
		Quantity:       c.cfg.Quantity,
		Tag:            "entry",
		ReferencePrice: sig.Price,
	}
	ref, err := c.submit(ctx, entry)
	if err != nil {
		logger.ErrorWithErr(ctx, "entry order failed", err, "symbol", c.symbol)
		return
	}

	state, err := c.pollUntilTerminal(ctx, ref)
	if err != nil {
		logger.ErrorWithErr(ctx, "entry order never settled", err,
			"symbol", c.symbol, "order_id", ref.OrderID)
		return
	}
	if state.Status != types.OrderComplete {
		logger.PositionAlert(ctx, c.symbol, "entry_rejected",
			"order_id", ref.OrderID, "status", state.Status, "message", state.StatusMessage)
		return
	}

	c.holding = state.FilledQuantity
	logger.Order(ctx, c.symbol, string(types.SideBuy), state.FilledQuantity, state.AveragePrice, ref.OrderID, ref.Tag,
		"status", state.Status)
	c.journalFill(ctx, types.SideBuy, types.OrderTypeMarket, ref, state)

	c.placeTargets(ctx, sig, state.FilledQuantity)
}

// placeTargets fans the filled entry quantity out across the signal's
// profit levels as limit sells. A missing level or a failed placement
// leaves its shares for the exit sweep rather than aborting the rest.
func (c *Controller) placeTargets(ctx context.Context, sig types.TradeSignal, filled int) {
	levels := sig.ProfitLevels()
	tiers := TierQuantities(filled, c.cfg.TierRatios)

	for i, qty := range tiers {
		if qty <= 0 {
			continue
		}
		if i >= len(levels) {
			logger.PositionAlert(ctx, c.symbol, "missing_target_level",
				"tier", i+1, "quantity", qty)
			continue
		}
		req := types.OrderRequest{
			Symbol:   c.symbol,
			Side:     types.SideSell,
			Type:     types.OrderTypeLimit,
			Quantity: qty,
			Price:    RoundToTick(levels[i].TargetPrice, c.cfg.TickSize),
			Tag:      fmt.Sprintf("target-%d", levels[i].Level),
		}
		ref, err := c.submit(ctx, req)
		if err != nil {
			logger.ErrorWithErr(ctx, "target order failed", err,
				"symbol", c.symbol, "tier", i+1, "quantity", qty)
			continue
		}
		c.pendingSells = append(c.pendingSells, sellOrder{ref: ref, quantity: qty})
	}
}

// exit sweeps the open target orders and flattens the remainder with
// one consolidated market sell.
func (c *Controller) exit(ctx context.Context, lastPrice float64) {
	if c.holding == 0 {
		logger.Debug(ctx, "sell signal with no position", "symbol", c.symbol)
		return
	}

	remaining := c.holding
	for _, so := range c.pendingSells {
		state, err := c.api.Status(ctx, so.ref)
		if err != nil {
			logger.ErrorWithErr(ctx, "target status fetch failed", err,
				"symbol", c.symbol, "order_id", so.ref.OrderID)
			continue
		}
		switch state.Status {
		case types.OrderComplete:
			remaining -= state.FilledQuantity
			c.journalFill(ctx, types.SideSell, types.OrderTypeLimit, so.ref, state)
		case types.OrderOpen, types.OrderPending:
			if err := c.api.Cancel(ctx, so.ref); err != nil {
				logger.ErrorWithErr(ctx, "target cancel failed", err,
					"symbol", c.symbol, "order_id", so.ref.OrderID)
			}
			// Whatever already matched is sold, the rest rides the sweep.
			remaining -= state.FilledQuantity
			if state.FilledQuantity > 0 {
				c.journalFill(ctx, types.SideSell, types.OrderTypeLimit, so.ref, state)
			}
		case types.OrderRejected, types.OrderCancelled:
			logger.PositionAlert(ctx, c.symbol, "target_never_worked",
				"order_id", so.ref.OrderID, "status", state.Status, "message", state.StatusMessage)
		}
	}
	c.pendingSells = nil

	if remaining <= 0 {
		c.holding = 0
		logger.Info(ctx, "position fully exited via targets", "symbol", c.symbol)
		return
	}

	// The targets' fills left the book whether or not the consolidated
	// sell works out; the counter must agree with the leftover warning.
	c.holding = remaining

	req := types.OrderRequest{
		Symbol:         c.symbol,
		Side:           types.SideSell,
		Type:           types.OrderTypeMarket,
		Quantity:       remaining,
		Tag:            "sweep",
		ReferencePrice: lastPrice,
	}
	ref, err := c.submit(ctx, req)
	if err != nil {
		logger.ErrorWithErr(ctx, "sweep order failed", err,
			"symbol", c.symbol, "quantity", remaining)
		logger.PositionAlert(ctx, c.symbol, "shares_left_unresolved", "quantity", remaining)
		return
	}

	state, err := c.pollUntilTerminal(ctx, ref)
	if err != nil || state.Status != types.OrderComplete {
		logger.PositionAlert(ctx, c.symbol, "shares_left_unresolved",
			"quantity", remaining, "order_id", ref.OrderID)
		return
	}
	c.holding = 0
	logger.Order(ctx, c.symbol, string(types.SideSell), state.FilledQuantity, state.AveragePrice, ref.OrderID, ref.Tag,
		"status", state.Status)
	c.journalFill(ctx, types.SideSell, types.OrderTypeMarket, ref, state)
}

// journalFill records executed quantity in the daily trade journal. The
// EOD summary is built from these lines.
func (c *Controller) journalFill(ctx context.Context, side types.Side, typ types.OrderType, ref types.OrderRef, state types.OrderState) {
	err := tradelog.Append(tradelog.Entry{
		Symbol:  c.symbol,
		Side:    string(side),
		Type:    string(typ),
		OrderID: ref.OrderID,
		Tag:     ref.Tag,
		Qty:     state.FilledQuantity,
		Price:   state.AveragePrice,
		Status:  string(types.OrderComplete),
	})
	if err != nil {
		logger.Warn(ctx, "trade journal write failed",
			"symbol", c.symbol, "order_id", ref.OrderID, "error", err)
	}
}

// submit pushes a request through the gateway and waits for the
// placement result.
func (c *Controller) submit(ctx context.Context, req types.OrderRequest) (types.OrderRef, error) {
	resultCh, err := c.submitter.Submit(ctx, req)
	if err != nil {
		return types.OrderRef{}, err
	}
	select {
	case res := <-resultCh:
		return res.Ref, res.Err
	case <-ctx.Done():
		return types.OrderRef{}, ctx.Err()
	}
}

// pollUntilTerminal re-fetches the order status every poll interval
// until the brokerage reports a terminal state or the attempt budget
// runs out.
func (c *Controller) pollUntilTerminal(ctx context.Context, ref types.OrderRef) (types.OrderState, error) {
	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		state, err := c.api.Status(ctx, ref)
		if err != nil {
			logger.Warn(ctx, "order status fetch failed",
				"symbol", c.symbol, "order_id", ref.OrderID, "error", err)
		} else if state.Terminal() {
			return state, nil
		}

		select {
		case <-time.After(c.cfg.PollInterval):
		case <-ctx.Done():
			return types.OrderState{}, ctx.Err()
		}
	}
	return types.OrderState{}, fmt.Errorf("order %s still open after %d polls", ref.OrderID, c.cfg.MaxPollAttempts)
}
