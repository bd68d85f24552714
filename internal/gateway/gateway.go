// Package gateway serializes order placement. All orders flow through
// one FIFO queue and one worker, with a fixed delay after every
// placement attempt so the brokerage rate limit is never hit, whether
// the attempt succeeded or not.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/metrics"
	"intraday-trader/internal/types"
)

// ErrInvalidOrder is returned synchronously by Submit for requests that
// fail validation. Invalid orders never enter the queue.
var ErrInvalidOrder = errors.New("invalid order")

// ErrClosed is returned by Submit after Stop.
var ErrClosed = errors.New("gateway closed")

const queueCapacity = 64

type pending struct {
	ctx    context.Context
	req    types.OrderRequest
	result chan types.OrderResult
}

// Gateway owns the order queue and its single placement worker.
type Gateway struct {
	api   interfaces.OrderAPI
	delay time.Duration
	queue chan pending
	done  chan struct{}
}

var _ interfaces.OrderSubmitter = (*Gateway)(nil)

// New creates a gateway placing orders through api, sleeping delay
// after each attempt.
func New(api interfaces.OrderAPI, delay time.Duration) *Gateway {
	return &Gateway{
		api:   api,
		delay: delay,
		queue: make(chan pending, queueCapacity),
		done:  make(chan struct{}),
	}
}

// Start launches the placement worker. The worker drains the queue
// until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) {
	go g.run(ctx)
}

// Submit validates the request and enqueues it. The returned channel
// delivers exactly one result once the placement attempt finishes;
// callers that do not care may discard it.
func (g *Gateway) Submit(ctx context.Context, req types.OrderRequest) (<-chan types.OrderResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	// Market orders carry no price whatever the caller set.
	if req.Type == types.OrderTypeMarket {
		req.Price = 0
	}

	p := pending{ctx: ctx, req: req, result: make(chan types.OrderResult, 1)}
	select {
	case g.queue <- p:
		metrics.OrderQueueDepth.Set(float64(len(g.queue)))
		return p.result, nil
	case <-g.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop prevents further submissions. Queued orders already accepted are
// still placed by the worker until its context is cancelled.
func (g *Gateway) Stop() {
	close(g.done)
}

func (g *Gateway) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-g.queue:
			metrics.OrderQueueDepth.Set(float64(len(g.queue)))
			g.place(ctx, p)

			// The delay applies after failures too: a rejected request
			// still consumed a brokerage API slot.
			select {
			case <-time.After(g.delay):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (g *Gateway) place(ctx context.Context, p pending) {
	ref, err := g.api.Place(p.ctx, p.req)
	if err != nil {
		metrics.OrdersFailed.WithLabelValues(p.req.Symbol, string(p.req.Side)).Inc()
		logger.ErrorWithErr(ctx, "order placement failed", err,
			"symbol", p.req.Symbol, "side", p.req.Side, "quantity", p.req.Quantity, "tag", p.req.Tag)
		p.result <- types.OrderResult{Err: err}
		return
	}

	metrics.OrdersPlaced.WithLabelValues(p.req.Symbol, string(p.req.Side), string(p.req.Type)).Inc()
	logger.Order(ctx, p.req.Symbol, string(p.req.Side), p.req.Quantity, p.req.Price, ref.OrderID, ref.Tag,
		"order_type", p.req.Type)
	p.result <- types.OrderResult{Ref: ref}
}

func validate(req types.OrderRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidOrder)
	}
	if req.Quantity < 1 {
		return fmt.Errorf("%w: quantity %d, must be at least 1", ErrInvalidOrder, req.Quantity)
	}
	switch req.Type {
	case types.OrderTypeLimit:
		if req.Price <= 0 {
			return fmt.Errorf("%w: limit order requires a positive price", ErrInvalidOrder)
		}
	case types.OrderTypeMarket:
		// Any caller-supplied price is discarded at submission.
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, req.Type)
	}
	switch req.Side {
	case types.SideBuy, types.SideSell:
	default:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, req.Side)
	}
	return nil
}
