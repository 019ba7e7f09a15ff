package stages

import (
	"errors"
	"math"

	"github.com/quantfold/deepstock/internal/models"
)

var errInsufficientData = errors.New("insufficient data for indicator")

// sma returns the simple moving average series. Element i covers the
// window ending at closes[i+period-1].
func sma(closes []float64, period int) ([]float64, error) {
	if len(closes) < period || period < 1 {
		return nil, errInsufficientData
	}
	out := make([]float64, 0, len(closes)-period+1)
	windowSum := 0.0
	for i, c := range closes {
		windowSum += c
		if i >= period {
			windowSum -= closes[i-period]
		}
		if i >= period-1 {
			out = append(out, windowSum/float64(period))
		}
	}
	return out, nil
}

// ema returns the exponential moving average series, seeded with the
// SMA of the first period values.
func ema(closes []float64, period int) ([]float64, error) {
	if len(closes) < period || period < 1 {
		return nil, errInsufficientData
	}
	multiplier := 2.0 / (float64(period) + 1.0)

	seed := 0.0
	for _, c := range closes[:period] {
		seed += c
	}
	current := seed / float64(period)

	out := make([]float64, 0, len(closes)-period+1)
	out = append(out, current)
	for _, c := range closes[period:] {
		current = c*multiplier + current*(1-multiplier)
		out = append(out, current)
	}
	return out, nil
}

// rsi returns the latest Wilder-smoothed relative strength index.
func rsi(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, errInsufficientData
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// macd returns the latest MACD line, signal line, and histogram using
// the standard 12/26/9 configuration.
func macd(closes []float64) (line, signal, histogram float64, err error) {
	ema12, err := ema(closes, 12)
	if err != nil {
		return 0, 0, 0, err
	}
	ema26, err := ema(closes, 26)
	if err != nil {
		return 0, 0, 0, err
	}

	// ema26 starts 14 samples later than ema12.
	offset := len(ema12) - len(ema26)
	macdLine := make([]float64, len(ema26))
	for i := range ema26 {
		macdLine[i] = ema12[i+offset] - ema26[i]
	}

	signalLine, err := ema(macdLine, 9)
	if err != nil {
		return 0, 0, 0, err
	}

	line = macdLine[len(macdLine)-1]
	signal = signalLine[len(signalLine)-1]
	return line, signal, line - signal, nil
}

// bollinger returns the latest middle/upper/lower band for the given
// period and multiplier.
func bollinger(closes []float64, period int, multiplier float64) (middle, upper, lower float64, err error) {
	if len(closes) < period {
		return 0, 0, 0, errInsufficientData
	}
	window := closes[len(closes)-period:]

	mean := 0.0
	for _, c := range window {
		mean += c
	}
	mean /= float64(period)

	variance := 0.0
	for _, c := range window {
		diff := c - mean
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return mean, mean + multiplier*stdDev, mean - multiplier*stdDev, nil
}

// atr returns the latest average true range over the period.
func atr(series []models.Candle, period int) (float64, error) {
	if len(series) < period+1 {
		return 0, errInsufficientData
	}

	trueRanges := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		high, _ := series[i].High.Float64()
		low, _ := series[i].Low.Float64()
		prevClose, _ := series[i-1].Close.Float64()
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trueRanges = append(trueRanges, tr)
	}

	window := trueRanges[len(trueRanges)-period:]
	total := 0.0
	for _, tr := range window {
		total += tr
	}
	return total / float64(period), nil
}

// latest returns the final element of a series, or 0 for an empty one.
func latest(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
