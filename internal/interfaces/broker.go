package interfaces

import (
	"context"
	"time"

	"intraday-trader/internal/types"
)

// HistoricalSource serves base-interval (1 minute) candles for a
// trading day.
type HistoricalSource interface {
	// HistoricalCandles returns the previous sessions' candles up to but
	// not including day, oldest first.
	HistoricalCandles(ctx context.Context, symbol string, day time.Time) ([]types.Candle, error)

	// IntradayCandles returns the candles of day itself that completed
	// before now, oldest first.
	IntradayCandles(ctx context.Context, symbol string, day time.Time) ([]types.Candle, error)
}

// OrderAPI is the raw brokerage order surface. Rate limiting and
// validation live above it in the gateway.
type OrderAPI interface {
	Place(ctx context.Context, req types.OrderRequest) (types.OrderRef, error)
	Status(ctx context.Context, ref types.OrderRef) (types.OrderState, error)
	Cancel(ctx context.Context, ref types.OrderRef) error
}
