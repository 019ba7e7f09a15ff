package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Technical scores price action from the collected OHLCV series. Each
// sub-signal is rescaled into [0,1] and the pillar score is their mean.
type Technical struct {
	window int
	log    zerolog.Logger
}

func NewTechnical(logger zerolog.Logger) *Technical {
	return &Technical{
		window: 120,
		log:    logger.With().Str("stage", consts.StageTechnical).Logger(),
	}
}

func (s *Technical) Name() string        { return consts.StageTechnical }
func (s *Technical) DependsOn() []string { return []string{consts.StageDataCollection} }

func (s *Technical) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		closes := data.Closes()
		if !info.Widened && len(closes) > s.window {
			// First pass looks at the recent window only; the widened
			// re-run uses the whole series.
			closes = closes[len(closes)-s.window:]
		}
		if len(closes) < 30 {
			return 0, "", fmt.Errorf("only %d closes", len(closes))
		}

		var signals []float64

		if r, err := rsi(closes, 14); err == nil {
			// Oversold reads bullish, overbought bearish.
			signals = append(signals, clampConfidence(1-r/100))
		}

		if line, signal, hist, err := macd(closes); err == nil {
			momentum := 0.5
			if line > signal {
				momentum = 0.7
			} else if line < signal {
				momentum = 0.3
			}
			if hist > 0 {
				momentum += 0.1
			}
			signals = append(signals, clampConfidence(momentum))
		}

		if ema10, err := ema(closes, 10); err == nil {
			if sma50, err := sma(closes, 50); err == nil {
				trend := 0.3
				if latest(ema10) > latest(sma50) {
					trend = 0.7
				}
				signals = append(signals, trend)
			}
		}

		if _, upper, lower, err := bollinger(closes, 20, 2); err == nil && upper > lower {
			// Position inside the band, inverted: near the lower band
			// reads as value, near the upper as stretched.
			pos := (latest(closes) - lower) / (upper - lower)
			signals = append(signals, clampConfidence(1-pos))
		}

		if v, err := atr(data.Series, 14); err == nil && latest(closes) > 0 {
			// Low relative volatility scores higher.
			relative := v / latest(closes)
			signals = append(signals, clampConfidence(1-relative*10))
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no computable signals")
		}
		score := mean(signals)
		return score, fmt.Sprintf("%d signals, score %.2f", len(signals), score), nil
	})
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
