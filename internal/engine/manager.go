package engine

import (
	"context"
	"sort"
	"sync"

	"intraday-trader/internal/interfaces"
	"intraday-trader/internal/logger"
	"intraday-trader/internal/metrics"
	"intraday-trader/internal/store"
)

// InstrumentStatus is the externally visible state of one worker.
type InstrumentStatus struct {
	Symbol   string `json:"symbol"`
	Quantity int    `json:"quantity"`
}

// Manager supervises the shared live feed and the per-instrument
// worker set. Add and remove are idempotent so the control API can
// retry safely.
type Manager struct {
	cfg       *store.Config
	feed      interfaces.LiveFeed
	history   interfaces.HistoricalSource
	decider   interfaces.Decider
	submitter interfaces.OrderSubmitter
	orderAPI  interfaces.OrderAPI

	mu      sync.Mutex
	workers map[string]*Worker
}

// NewManager creates a manager with no instruments.
func NewManager(cfg *store.Config, feed interfaces.LiveFeed, history interfaces.HistoricalSource,
	decider interfaces.Decider, submitter interfaces.OrderSubmitter, orderAPI interfaces.OrderAPI) *Manager {
	return &Manager{
		cfg:       cfg,
		feed:      feed,
		history:   history,
		decider:   decider,
		submitter: submitter,
		orderAPI:  orderAPI,
		workers:   make(map[string]*Worker),
	}
}

// Start opens the live feed and launches the configured instruments.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.feed.Start(ctx); err != nil {
		return err
	}
	for _, inst := range m.cfg.Instruments {
		if err := m.AddInstrument(ctx, inst.Symbol, inst.Quantity); err != nil {
			logger.ErrorWithErr(ctx, "configured instrument failed to start", err, "symbol", inst.Symbol)
		}
	}
	return nil
}

// Stop tears down every worker and closes the feed.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	workers := make([]*Worker, 0, len(m.workers))
	for _, w := range m.workers {
		workers = append(workers, w)
	}
	m.workers = make(map[string]*Worker)
	m.mu.Unlock()

	for _, w := range workers {
		w.Stop(ctx)
	}
	metrics.InstrumentsActive.Set(0)
	m.feed.Stop(ctx)
}

// AddInstrument starts a worker for symbol. Adding an already tracked
// symbol is a no-op. A zero quantity falls back to the configured
// default.
func (m *Manager) AddInstrument(ctx context.Context, symbol string, quantity int) error {
	if quantity <= 0 {
		quantity = m.cfg.Orders.DefaultQuantity
	}

	m.mu.Lock()
	if _, exists := m.workers[symbol]; exists {
		m.mu.Unlock()
		logger.Debug(ctx, "instrument already tracked", "symbol", symbol)
		return nil
	}
	m.mu.Unlock()

	w := NewWorker(symbol, quantity, m.cfg, m.feed, m.history, m.decider, m.submitter, m.orderAPI)
	if err := w.Start(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.workers[symbol]; exists {
		// Lost the race to a concurrent add of the same symbol.
		m.mu.Unlock()
		w.Stop(ctx)
		return nil
	}
	m.workers[symbol] = w
	count := len(m.workers)
	m.mu.Unlock()

	metrics.InstrumentsActive.Set(float64(count))
	return nil
}

// RemoveInstrument stops and forgets symbol's worker. Unknown symbols
// are a no-op.
func (m *Manager) RemoveInstrument(ctx context.Context, symbol string) error {
	m.mu.Lock()
	w, exists := m.workers[symbol]
	if exists {
		delete(m.workers, symbol)
	}
	count := len(m.workers)
	m.mu.Unlock()

	if !exists {
		logger.Debug(ctx, "instrument not tracked", "symbol", symbol)
		return nil
	}

	w.Stop(ctx)
	metrics.InstrumentsActive.Set(float64(count))
	return nil
}

// ListInstruments returns the tracked instruments sorted by symbol.
func (m *Manager) ListInstruments() []InstrumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]InstrumentStatus, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, InstrumentStatus{Symbol: w.Symbol(), Quantity: w.Quantity()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// MarketOpen reports the live feed's view of the trading session.
func (m *Manager) MarketOpen() bool {
	return m.feed.MarketOpen()
}
