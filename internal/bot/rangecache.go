package bot

import (
	"context"
	"errors"
	"time"

	"breakout-trading-bot/internal/strategy"
)

// rangeCache holds at most one opening range per symbol. Entries carry their
// capture day; an entry from a prior day is treated as absent and replaced.
// Only the scheduler goroutine touches the cache, so it needs no locking.
type rangeCache struct {
	ranges map[string]strategy.OpeningRange
}

func newRangeCache() *rangeCache {
	return &rangeCache{ranges: make(map[string]strategy.OpeningRange)}
}

func (c *rangeCache) get(symbol string, day time.Time) (strategy.OpeningRange, bool) {
	rng, ok := c.ranges[symbol]
	if !ok || !rng.CurrentFor(day) {
		return strategy.OpeningRange{}, false
	}
	return rng, true
}

func (c *rangeCache) put(rng strategy.OpeningRange) {
	c.ranges[rng.Symbol] = rng
}

// rangeFor returns today's opening range for symbol, querying the market
// data gateway only on a cache miss. A failed capture is not cached; the
// next cycle retries. If the opening window has not fully elapsed yet, the
// bars seen so far are used and cached for the rest of the day.
func (b *Bot) rangeFor(ctx context.Context, symbol string, now time.Time) (strategy.OpeningRange, error) {
	if rng, ok := b.ranges.get(symbol, now); ok {
		return rng, nil
	}

	start, end := strategy.WindowBounds(now)
	bars, err := b.market.GetBars(ctx, symbol, start, end)
	if err != nil {
		return strategy.OpeningRange{}, err
	}

	rng, err := strategy.ComputeOpeningRange(symbol, now, bars)
	if err != nil {
		if errors.Is(err, strategy.ErrNoData) {
			b.logf("No 9:30-9:45 data for %s", symbol)
		}
		return strategy.OpeningRange{}, err
	}

	b.ranges.put(rng)
	b.logf("%s breakout range captured: High=%.2f, Low=%.2f", symbol, rng.High, rng.Low)
	b.events.Publish(eventRangeCaptured(rng))
	return rng, nil
}
