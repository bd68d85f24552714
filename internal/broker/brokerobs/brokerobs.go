// Package brokerobs wraps the order API with logging and tracing
// middleware so the call sites stay free of observability plumbing.
package brokerobs

import (
	"context"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/trace"
	"intraday-trader/internal/types"
)

type observableOrderAPI struct {
	api interfaces.OrderAPI
}

var _ interfaces.OrderAPI = (*observableOrderAPI)(nil)

// Wrap wraps an order API with observability middleware.
func Wrap(api interfaces.OrderAPI) interfaces.OrderAPI {
	return &observableOrderAPI{api: api}
}

func (o *observableOrderAPI) Place(ctx context.Context, req types.OrderRequest) (types.OrderRef, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Place")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"type", req.Type,
		"quantity", req.Quantity,
		"price", req.Price,
		"tag", req.Tag,
	)

	ref, err := o.api.Place(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"quantity", req.Quantity,
		)
		return types.OrderRef{}, err
	}

	logger.InfoSkip(ctx, 1, "Order placed",
		"symbol", req.Symbol,
		"order_id", ref.OrderID,
		"tag", ref.Tag,
	)
	return ref, nil
}

func (o *observableOrderAPI) Status(ctx context.Context, ref types.OrderRef) (types.OrderState, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Status")
	defer span.End()

	state, err := o.api.Status(ctx, ref)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order status", err, "order_id", ref.OrderID)
		return types.OrderState{}, err
	}

	logger.DebugSkip(ctx, 1, "Order status",
		"order_id", ref.OrderID,
		"status", state.Status,
		"filled", state.FilledQuantity,
		"pending", state.PendingQuantity,
	)
	return state, nil
}

func (o *observableOrderAPI) Cancel(ctx context.Context, ref types.OrderRef) error {
	ctx, span := trace.StartSpan(ctx, "broker.Cancel")
	defer span.End()

	if err := o.api.Cancel(ctx, ref); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to cancel order", err, "order_id", ref.OrderID)
		return err
	}

	logger.InfoSkip(ctx, 1, "Order cancelled", "order_id", ref.OrderID, "tag", ref.Tag)
	return nil
}
