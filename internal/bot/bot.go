// Package bot contains the breakout controller: the scheduler loop, the
// per-day opening-range cache and the runtime-mutable trading settings.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"breakout-trading-bot/internal/alpaca"
	"breakout-trading-bot/internal/events"
	"breakout-trading-bot/internal/logbuf"
	"breakout-trading-bot/internal/metrics"
	"breakout-trading-bot/internal/risk"
	"breakout-trading-bot/internal/strategy"

	"github.com/rs/zerolog"
)

// Regular session bounds, exchange-local time. The decision loop only
// trades inside [09:30, 16:00) on weekdays.
const (
	marketOpenHour    = 9
	marketOpenMinute  = 30
	marketCloseHour   = 16
	marketCloseMinute = 0
)

// MarketData is the market-data gateway consumed by the controller.
type MarketData interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]alpaca.Bar, error)
	GetLatestTrade(ctx context.Context, symbol string) (float64, error)
}

// Broker is the order-execution gateway consumed by the controller.
type Broker interface {
	SubmitMarketOrder(ctx context.Context, symbol string, qty int, side alpaca.Side) (*alpaca.Order, error)
	GetPositions(ctx context.Context) ([]alpaca.Position, error)
	GetAccount(ctx context.Context) (*alpaca.Account, error)
}

// Bot runs the breakout decision loop and exposes the control operations the
// HTTP layer calls. Exactly one loop goroutine exists while running; cycles
// never overlap.
type Bot struct {
	market   MarketData
	broker   Broker
	settings *settingsStore
	ranges   *rangeCache
	logs     *logbuf.Buffer
	events   *events.EventBus
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a stopped controller with the given initial settings.
func New(market MarketData, broker Broker, initial Settings, interval time.Duration, logs *logbuf.Buffer, bus *events.EventBus, logger zerolog.Logger) *Bot {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Bot{
		market:   market,
		broker:   broker,
		settings: newSettingsStore(initial),
		ranges:   newRangeCache(),
		logs:     logs,
		events:   bus,
		logger:   logger.With().Str("component", "bot").Logger(),
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the scheduler loop. Calling Start on a running controller
// is a no-op; the returned bool reports whether a new loop was started.
// Restarting after Stop blocks until the previous loop's in-flight cycle
// has finished.
func (b *Bot) Start() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return false
	}

	// A stopped loop may still be finishing an in-flight cycle. Wait for it
	// so two loops never run cycles concurrently; the loop goroutine never
	// takes b.mu, so holding it here cannot deadlock.
	b.wg.Wait()

	b.running = true
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.run(b.stopChan)

	b.logf("Bot started.")
	b.events.Publish(events.Event{Type: events.EventBotStarted})
	return true
}

// Stop requests the loop to halt. It is idempotent and does not wait for an
// in-flight cycle: the loop observes the signal at the top of its next tick.
func (b *Bot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}

	b.running = false
	close(b.stopChan)
	b.logf("Bot stopping...")
}

// Running reports whether the scheduler loop is active.
func (b *Bot) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Wait blocks until the loop goroutine has exited. Used at process shutdown.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) run(stop <-chan struct{}) {
	defer b.wg.Done()
	defer func() {
		b.logf("Bot stopped.")
		b.events.Publish(events.Event{Type: events.EventBotStopped})
	}()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	// First cycle runs immediately; the ticker paces the rest.
	b.tick(context.Background())

	for {
		select {
		case <-ticker.C:
			b.tick(context.Background())
		case <-stop:
			return
		}
	}
}

// tick executes one scheduler iteration: the market-hours gate, the entry
// pass over all configured symbols, then the risk pass over open positions.
func (b *Bot) tick(ctx context.Context) {
	now := b.now()
	if !withinMarketHours(now) {
		b.logf("Market closed. Skipping.")
		metrics.CyclesSkipped.WithLabelValues("market_closed").Inc()
		return
	}

	cfg := b.settings.Load()
	b.entryPass(ctx, cfg, now)
	b.riskPass(ctx, cfg)
	metrics.Cycles.Inc()
}

// entryPass evaluates the breakout entry rule for each configured symbol, in
// the configured order. Gateway failures are logged and skip only the
// affected symbol.
func (b *Bot) entryPass(ctx context.Context, cfg Settings, now time.Time) {
	if len(cfg.Symbols) == 0 {
		return
	}

	qtyBySymbol, err := b.positionQuantities(ctx)
	if err != nil {
		b.gatewayError("positions", err)
		return
	}

	for _, symbol := range cfg.Symbols {
		rng, err := b.rangeFor(ctx, symbol, now)
		if err != nil {
			b.gatewayError("bars", err)
			continue
		}

		price, err := b.market.GetLatestTrade(ctx, symbol)
		if err != nil {
			b.gatewayError("trade", fmt.Errorf("error fetching price for %s: %w", symbol, err))
			continue
		}

		signal := strategy.EvaluateEntry(rng, price, qtyBySymbol[symbol], cfg.PositionSize)
		if signal.Type != strategy.SignalBuy {
			continue
		}

		b.logf("Buy signal for %s at %.2f", symbol, price)
		metrics.Signals.WithLabelValues(symbol).Inc()
		b.events.PublishSignal(symbol, signal.Reason, price, signal.Quantity)
		b.placeOrder(ctx, symbol, signal.Quantity, alpaca.SideBuy)
	}
}

// riskPass checks every open position against the stop-loss and take-profit
// thresholds derived from the settings in effect right now. A missing price
// skips that position until the next cycle.
func (b *Bot) riskPass(ctx context.Context, cfg Settings) {
	positions, err := b.broker.GetPositions(ctx)
	if err != nil {
		b.gatewayError("positions", err)
		return
	}

	for _, pos := range positions {
		if pos.Qty == 0 {
			continue
		}

		price, err := b.market.GetLatestTrade(ctx, pos.Symbol)
		if err != nil {
			b.gatewayError("trade", fmt.Errorf("error fetching price for %s: %w", pos.Symbol, err))
			continue
		}

		exit := risk.EvaluateExit(pos.AvgEntryPrice, price, cfg.StopLossPercent, cfg.TakeProfitPercent)
		switch exit.Reason {
		case risk.ExitStopLoss:
			b.logf("Stop loss for %s hit at %.2f", pos.Symbol, price)
		case risk.ExitTakeProfit:
			b.logf("Take profit for %s hit at %.2f", pos.Symbol, price)
		default:
			continue
		}

		metrics.Exits.WithLabelValues(string(exit.Reason)).Inc()
		b.events.PublishPositionClosed(pos.Symbol, string(exit.Reason), pos.AvgEntryPrice, price, pos.Qty)
		b.placeOrder(ctx, pos.Symbol, pos.Qty, alpaca.SideSell)
	}
}

func (b *Bot) placeOrder(ctx context.Context, symbol string, qty int, side alpaca.Side) {
	if _, err := b.broker.SubmitMarketOrder(ctx, symbol, qty, side); err != nil {
		b.gatewayError("order", fmt.Errorf("order error for %s: %w", symbol, err))
		return
	}
	b.logf("%s order placed for %s", strings.ToUpper(string(side)), symbol)
	metrics.Orders.WithLabelValues(string(side)).Inc()
	b.events.PublishOrderPlaced(symbol, string(side), qty)
}

func (b *Bot) positionQuantities(ctx context.Context) (map[string]int, error) {
	positions, err := b.broker.GetPositions(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(positions))
	for _, pos := range positions {
		out[pos.Symbol] = pos.Qty
	}
	return out, nil
}

// Control operations consumed by the HTTP layer.

// Settings returns the current trading parameters snapshot.
func (b *Bot) Settings() Settings {
	return b.settings.Load()
}

// SetSymbols replaces the traded symbol list. An empty list is accepted and
// simply yields no entry signals on following cycles.
func (b *Bot) SetSymbols(symbols []string) Settings {
	next := b.settings.Update(func(s *Settings) {
		s.Symbols = append([]string(nil), symbols...)
	})
	b.configUpdated("symbols")
	return next
}

// SetPositionSize replaces the per-entry share count.
func (b *Bot) SetPositionSize(size int) Settings {
	next := b.settings.Update(func(s *Settings) { s.PositionSize = size })
	b.configUpdated("position_size")
	return next
}

// SetStopLoss replaces the stop-loss fraction. The value is accepted
// unchecked; inverted or nonsensical thresholds are a documented operator
// hazard, not an error.
func (b *Bot) SetStopLoss(fraction float64) Settings {
	next := b.settings.Update(func(s *Settings) { s.StopLossPercent = fraction })
	b.configUpdated("stop_loss")
	return next
}

// SetTakeProfit replaces the take-profit fraction, also unchecked.
func (b *Bot) SetTakeProfit(fraction float64) Settings {
	next := b.settings.Update(func(s *Settings) { s.TakeProfitPercent = fraction })
	b.configUpdated("take_profit")
	return next
}

// Logs returns the most recent n log entries, capped at 50.
func (b *Bot) Logs(n int) []logbuf.Entry {
	const maxLogQuery = 50
	if n <= 0 || n > maxLogQuery {
		n = maxLogQuery
	}
	return b.logs.Recent(n)
}

// Balance queries the broker for the account cash and portfolio value.
// Gateway failures are returned to the caller, not swallowed.
func (b *Bot) Balance(ctx context.Context) (*alpaca.Account, error) {
	account, err := b.broker.GetAccount(ctx)
	if err != nil {
		b.gatewayError("account", err)
		return nil, err
	}
	metrics.PortfolioValue.Set(account.PortfolioValue)
	return account, nil
}

func (b *Bot) configUpdated(field string) {
	b.logf("Configuration updated: %s", field)
	b.events.Publish(events.Event{
		Type: events.EventConfigUpdated,
		Data: map[string]interface{}{"field": field},
	})
}

// logf records a message in both the structured log and the bounded history
// served by the control API.
func (b *Bot) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	b.logger.Info().Msg(msg)
	b.logs.Append(msg)
}

func (b *Bot) gatewayError(op string, err error) {
	b.logf("%v", err)
	metrics.GatewayErrors.WithLabelValues(op).Inc()
	b.events.PublishError(op, err.Error())
}

func eventRangeCaptured(rng strategy.OpeningRange) events.Event {
	return events.Event{
		Type: events.EventRangeCaptured,
		Data: map[string]interface{}{
			"symbol": rng.Symbol,
			"high":   rng.High,
			"low":    rng.Low,
			"date":   rng.Day.Format("2006-01-02"),
		},
	}
}

// withinMarketHours reports whether t falls inside the regular session on a
// weekday. The close is exclusive.
func withinMarketHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open := time.Date(t.Year(), t.Month(), t.Day(), marketOpenHour, marketOpenMinute, 0, 0, t.Location())
	close := time.Date(t.Year(), t.Month(), t.Day(), marketCloseHour, marketCloseMinute, 0, 0, t.Location())
	return !t.Before(open) && t.Before(close)
}
