package interfaces

import (
	"context"

	"intraday-trader/internal/types"
)

// OrderSubmitter enqueues an order for serialized, rate-limited
// placement. The returned channel delivers exactly one result.
type OrderSubmitter interface {
	Submit(ctx context.Context, req types.OrderRequest) (<-chan types.OrderResult, error)
}
