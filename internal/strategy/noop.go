// Package strategy provides the pluggable trade deciders.
package strategy

import (
	"context"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/types"
)

// NoopDecider always decides WAIT. It is the shipping default: the
// pipeline runs end to end, aggregates, computes indicators and logs,
// without ever risking an order.
type NoopDecider struct{}

var _ interfaces.Decider = (*NoopDecider)(nil)

// NewNoopDecider returns a decider that never trades.
func NewNoopDecider() *NoopDecider {
	return &NoopDecider{}
}

func (d *NoopDecider) Decide(_ context.Context, _ string, _ types.IndicatorSnapshot, _ types.LTPC) (types.SignalKind, error) {
	return types.SignalWait, nil
}
