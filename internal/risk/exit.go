// Package risk evaluates stop-loss and take-profit exits for open positions.
package risk

import "fmt"

// ExitReason classifies why a position should be closed.
type ExitReason string

const (
	ExitNone       ExitReason = "NONE"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
)

// Exit is the outcome of one risk evaluation.
type Exit struct {
	Reason ExitReason
	Detail string
}

// Thresholds computes the exit prices for a position entered at entryPrice
// under the given percentages. The percentages are whatever is configured at
// evaluation time; configuration changes apply to all open positions on the
// next cycle.
func Thresholds(entryPrice, stopLossPercent, takeProfitPercent float64) (stop, target float64) {
	stop = entryPrice * (1 - stopLossPercent)
	target = entryPrice * (1 + takeProfitPercent)
	return stop, target
}

// EvaluateExit applies the exit rule. The stop-loss check runs first, so
// when a misconfiguration puts the stop at or above the target the stop
// wins. Both boundaries are inclusive.
func EvaluateExit(entryPrice, currentPrice, stopLossPercent, takeProfitPercent float64) Exit {
	stop, target := Thresholds(entryPrice, stopLossPercent, takeProfitPercent)

	if currentPrice <= stop {
		return Exit{
			Reason: ExitStopLoss,
			Detail: fmt.Sprintf("price %.2f at or below stop %.2f", currentPrice, stop),
		}
	}
	if currentPrice >= target {
		return Exit{
			Reason: ExitTakeProfit,
			Detail: fmt.Sprintf("price %.2f at or above target %.2f", currentPrice, target),
		}
	}
	return Exit{Reason: ExitNone}
}
