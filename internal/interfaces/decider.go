package interfaces

import (
	"context"

	"intraday-trader/internal/types"
)

// Decider maps the current indicator snapshot and live tick to a trade
// decision. Implementations hold whatever strategy state they need.
type Decider interface {
	Decide(ctx context.Context, symbol string, snap types.IndicatorSnapshot, tick types.LTPC) (types.SignalKind, error)
}
