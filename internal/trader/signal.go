package trader

import (
	"fmt"
	"time"
)

// Decision is the outcome of comparing the short and long moving averages.
type Decision int

const (
	Hold Decision = iota
	Buy
	Sell
)

func (d Decision) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	default:
		return "UNKNOWN"
	}
}

// PricePoint is a single closing price in a candlestick series.
type PricePoint struct {
	Time  time.Time
	Close float64
}

// MovingAverages holds the trailing simple moving averages ending at the
// most recent point of a price series.
type MovingAverages struct {
	Short float64
	Long  float64
}

// ComputeAverages calculates the trailing arithmetic means over the last
// shortWindow and longWindow closing prices of the series. The series must
// be ordered oldest to newest and at least as long as the larger window,
// otherwise ErrInsufficientData is returned.
func ComputeAverages(series []PricePoint, shortWindow, longWindow int) (MovingAverages, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return MovingAverages{}, fmt.Errorf("window sizes must be positive, got short=%d long=%d", shortWindow, longWindow)
	}
	if len(series) < shortWindow || len(series) < longWindow {
		return MovingAverages{}, fmt.Errorf("series has %d points, need %d: %w",
			len(series), max(shortWindow, longWindow), ErrInsufficientData)
	}

	return MovingAverages{
		Short: trailingMean(series, shortWindow),
		Long:  trailingMean(series, longWindow),
	}, nil
}

func trailingMean(series []PricePoint, window int) float64 {
	var sum float64
	for _, p := range series[len(series)-window:] {
		sum += p.Close
	}
	return sum / float64(window)
}

// Decide maps the moving averages to a trade decision: BUY when the short
// average is above the long one, SELL when below, HOLD on exact equality.
// Stateless; each cycle decides from scratch.
func Decide(avg MovingAverages) Decision {
	switch {
	case avg.Short > avg.Long:
		return Buy
	case avg.Short < avg.Long:
		return Sell
	default:
		return Hold
	}
}
