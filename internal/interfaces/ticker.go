package interfaces

import (
	"context"

	"intraday-trader/internal/types"
)

// LiveFeed streams per-instrument market data. Subscribers receive
// ticks and completed base-interval candles on their channel; the feed
// never blocks on a slow subscriber.
type LiveFeed interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Subscribe(ctx context.Context, symbol string, ch chan<- types.FeedUpdate) error
	Unsubscribe(ctx context.Context, symbol string) error
	MarketOpen() bool
}
