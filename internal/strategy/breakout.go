// Package strategy holds the opening-range breakout math: the per-day
// high/low range of the opening window and the entry rule derived from it.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"breakout-trading-bot/internal/alpaca"
)

// ErrNoData is returned when the opening window produced no bars, e.g. the
// query ran before the market opened or on a halted symbol.
var ErrNoData = errors.New("no bars in opening window")

// Opening window of the session, exchange-local time.
const (
	WindowOpenHour    = 9
	WindowOpenMinute  = 30
	WindowCloseHour   = 9
	WindowCloseMinute = 45
)

// OpeningRange is the high/low of the 09:30-09:45 window for one symbol on
// one trading day. It is immutable once captured and only valid for Day.
type OpeningRange struct {
	Symbol string
	High   float64
	Low    float64
	Day    time.Time // midnight, exchange-local
}

// CurrentFor reports whether the range was captured on the given day.
func (r OpeningRange) CurrentFor(day time.Time) bool {
	ry, rm, rd := r.Day.Date()
	dy, dm, dd := day.Date()
	return ry == dy && rm == dm && rd == dd
}

// WindowBounds returns the [start, end) opening window for the day of t in
// t's location.
func WindowBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, WindowOpenHour, WindowOpenMinute, 0, 0, t.Location())
	end := time.Date(y, m, d, WindowCloseHour, WindowCloseMinute, 0, 0, t.Location())
	return start, end
}

// ComputeOpeningRange derives the range from the window's minute bars.
// Bars captured before the window has fully elapsed are used as-is; the
// range is whatever the market has shown so far.
func ComputeOpeningRange(symbol string, day time.Time, bars []alpaca.Bar) (OpeningRange, error) {
	if len(bars) == 0 {
		return OpeningRange{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	high := bars[0].High
	low := bars[0].Low
	for _, bar := range bars[1:] {
		if bar.High > high {
			high = bar.High
		}
		if bar.Low < low {
			low = bar.Low
		}
	}

	y, m, d := day.Date()
	return OpeningRange{
		Symbol: symbol,
		High:   high,
		Low:    low,
		Day:    time.Date(y, m, d, 0, 0, 0, 0, day.Location()),
	}, nil
}

// SignalType classifies an entry decision.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalNone SignalType = "NONE"
)

// Signal is the outcome of one entry evaluation.
type Signal struct {
	Type     SignalType
	Symbol   string
	Price    float64
	Quantity int
	Reason   string
}

// EvaluateEntry applies the breakout entry rule: buy positionSize shares iff
// the account is flat in the symbol and the price is strictly above the
// range high. A price equal to the high does not trigger. Held positions,
// long or short, suppress any further entry until the symbol is flat again.
func EvaluateEntry(rng OpeningRange, currentPrice float64, positionQty, positionSize int) Signal {
	if positionQty != 0 {
		return Signal{Type: SignalNone, Symbol: rng.Symbol}
	}
	if currentPrice <= rng.High {
		return Signal{Type: SignalNone, Symbol: rng.Symbol}
	}

	return Signal{
		Type:     SignalBuy,
		Symbol:   rng.Symbol,
		Price:    currentPrice,
		Quantity: positionSize,
		Reason:   fmt.Sprintf("price %.2f above opening range high %.2f", currentPrice, rng.High),
	}
}
