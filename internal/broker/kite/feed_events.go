package kite

import (
	"context"
	"time"

	"intraday-trader/internal/logger"
	"intraday-trader/internal/metrics"
	"intraday-trader/internal/types"

	"github.com/zerodha/gokiteconnect/v4/models"
)

func (f *Feed) setupEventHandlers() {
	f.ticker.OnConnect(f.onConnect)
	f.ticker.OnError(f.onError)
	f.ticker.OnClose(f.onClose)
	f.ticker.OnReconnect(f.onReconnect)
	f.ticker.OnNoReconnect(f.onNoReconnect)
	f.ticker.OnTick(f.onTick)
}

// onConnect replays every registered subscription. It runs on first
// connect and after every reconnect, so subscriptions survive drops.
func (f *Feed) onConnect() {
	// Nothing to read outside the session; keeping the socket up would
	// just burn reconnect budget.
	if !f.MarketOpen() {
		metrics.MarketState.Set(0)
		logger.Warn(context.Background(), "market closed at connect, stopping feed")
		f.ticker.Stop()
		return
	}

	f.mu.Lock()
	f.connected = true
	tokens := make([]uint32, 0, len(f.subs))
	for symbol := range f.subs {
		if token, ok := f.mapper.getToken(symbol); ok {
			tokens = append(tokens, token)
		}
	}
	f.mu.Unlock()

	logger.Info(context.Background(), "websocket connected", "subscriptions", len(tokens))
	metrics.MarketState.Set(1)

	if len(tokens) == 0 {
		return
	}
	if err := f.wireSubscribe(tokens); err != nil {
		logger.ErrorWithErr(context.Background(), "resubscribe after connect failed", err)
	}
}

func (f *Feed) onError(err error) {
	logger.ErrorWithErr(context.Background(), "websocket error", err)
}

func (f *Feed) onClose(code int, reason string) {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()

	metrics.MarketState.Set(0)
	logger.Warn(context.Background(), "websocket closed", "code", code, "reason", reason)
}

func (f *Feed) onReconnect(attempt int, delay time.Duration) {
	metrics.FeedReconnects.Inc()
	logger.Info(context.Background(), "websocket reconnecting", "attempt", attempt, "delay", delay)
}

func (f *Feed) onNoReconnect(attempt int) {
	logger.Error(context.Background(), "websocket gave up reconnecting", "attempts", attempt)
}

// onTick decodes one wire tick into an LTPC event plus, on minute
// rollover, the completed 1-minute candle.
func (f *Feed) onTick(tick models.Tick) {
	symbol := f.mapper.getSymbol(tick.InstrumentToken)
	if symbol == "" {
		return
	}

	ltt := tick.LastTradeTime.Time
	if ltt.IsZero() {
		ltt = tick.Timestamp.Time
	}
	if ltt.IsZero() || tick.LastPrice == 0 {
		return
	}

	f.mu.Lock()
	ch, subscribed := f.subs[symbol]
	builder := f.builders[symbol]
	var completed types.Candle
	var done bool
	if subscribed && builder != nil {
		completed, done = builder.push(tick.LastPrice, ltt, int64(tick.VolumeTraded))
	}
	f.mu.Unlock()

	if !subscribed {
		return
	}
	metrics.TicksTotal.WithLabelValues(symbol).Inc()

	if done {
		c := completed
		f.dispatch(ch, types.FeedUpdate{Symbol: symbol, Candle: &c})
	}
	f.dispatch(ch, types.FeedUpdate{Symbol: symbol, Tick: &types.LTPC{
		LTP: tick.LastPrice,
		LTT: ltt,
		LTQ: int64(tick.LastTradedQuantity),
		CP:  tick.OHLC.Close,
	}})
}
