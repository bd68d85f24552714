package kite

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/types"

	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"
)

// NSE equity session, IST.
var (
	sessionOpen  = 9*60 + 15
	sessionClose = 15*60 + 30
)

// Feed streams live ticks and 1-minute candles per instrument over the
// Kite WebSocket. Subscriber channels are never blocked on: a full
// channel drops the update.
type Feed struct {
	apiKey         string
	accessToken    string
	mapper         *instrumentMapper
	reconnectDelay time.Duration

	ticker    tickerConn
	newTicker func() tickerConn
	now       func() time.Time

	mu        sync.RWMutex
	subs      map[string]chan<- types.FeedUpdate
	builders  map[string]*minuteBuilder
	connected bool
	started   bool
}

// tickerConn is the slice of *kiteticker.Ticker the feed drives.
// Factored out so tests can run against a fake connection.
type tickerConn interface {
	OnConnect(func())
	OnError(func(err error))
	OnClose(func(code int, reason string))
	OnReconnect(func(attempt int, delay time.Duration))
	OnNoReconnect(func(attempt int))
	OnTick(func(tick models.Tick))
	Serve()
	Stop()
	Subscribe(tokens []uint32) error
	Unsubscribe(tokens []uint32) error
	SetMode(mode kiteticker.Mode, tokens []uint32) error
	SetReconnectMaxDelay(delay time.Duration) error
}

var _ interfaces.LiveFeed = (*Feed)(nil)

// NewFeed creates a live feed. tokens maps trading symbols to Kite
// instrument tokens. reconnectDelay caps the ticker's reconnect
// backoff; zero keeps the library default.
func NewFeed(apiKey, accessToken string, tokens map[string]uint32, reconnectDelay time.Duration) *Feed {
	f := &Feed{
		apiKey:         apiKey,
		accessToken:    accessToken,
		mapper:         newInstrumentMapper(tokens),
		reconnectDelay: reconnectDelay,
		subs:           make(map[string]chan<- types.FeedUpdate),
		builders:       make(map[string]*minuteBuilder),
	}
	f.newTicker = func() tickerConn {
		return kiteticker.New(apiKey, accessToken)
	}
	f.now = time.Now
	return f
}

// Start opens the WebSocket connection and begins serving ticks.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}

	f.ticker = f.newTicker()
	f.setupEventHandlers()
	if f.reconnectDelay > 0 {
		if err := f.ticker.SetReconnectMaxDelay(f.reconnectDelay); err != nil {
			logger.Warn(ctx, "reconnect delay not applied", "error", err)
		}
	}

	go f.ticker.Serve()
	f.started = true

	logger.Info(ctx, "live feed started")
	return nil
}

// Stop closes the WebSocket connection.
func (f *Feed) Stop(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.ticker.Stop()
	f.started = false
	f.connected = false
	logger.Info(ctx, "live feed stopped")
}

// Subscribe registers ch for symbol's updates and subscribes the
// instrument on the wire. Re-subscribing a symbol replaces its channel.
func (f *Feed) Subscribe(ctx context.Context, symbol string, ch chan<- types.FeedUpdate) error {
	token, ok := f.mapper.getToken(symbol)
	if !ok {
		return fmt.Errorf("no instrument token configured for %s", symbol)
	}

	f.mu.Lock()
	f.subs[symbol] = ch
	f.builders[symbol] = &minuteBuilder{}
	connected := f.connected
	f.mu.Unlock()

	if connected {
		return f.wireSubscribe([]uint32{token})
	}
	// Otherwise the OnConnect handler replays every registered symbol.
	return nil
}

// Unsubscribe removes symbol's subscription. Unknown symbols are a
// no-op, which makes removal idempotent.
func (f *Feed) Unsubscribe(ctx context.Context, symbol string) error {
	token, ok := f.mapper.getToken(symbol)
	if !ok {
		return nil
	}

	f.mu.Lock()
	_, subscribed := f.subs[symbol]
	delete(f.subs, symbol)
	delete(f.builders, symbol)
	connected := f.connected
	f.mu.Unlock()

	if !subscribed || !connected {
		return nil
	}
	if err := f.ticker.Unsubscribe([]uint32{token}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	return nil
}

// MarketOpen reports whether the NSE equity session is currently open.
func (f *Feed) MarketOpen() bool {
	now := f.now().In(istZone)
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	return minutes >= sessionOpen && minutes < sessionClose
}

func (f *Feed) wireSubscribe(tokens []uint32) error {
	if err := f.ticker.Subscribe(tokens); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := f.ticker.SetMode(kiteticker.ModeFull, tokens); err != nil {
		return fmt.Errorf("set ticker mode: %w", err)
	}
	return nil
}

// dispatch delivers an update without ever blocking the tick loop.
func (f *Feed) dispatch(ch chan<- types.FeedUpdate, update types.FeedUpdate) {
	select {
	case ch <- update:
	default:
		logger.Warn(context.Background(), "subscriber channel full, update dropped",
			"symbol", update.Symbol)
	}
}
