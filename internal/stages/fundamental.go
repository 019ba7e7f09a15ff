package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Fundamental scores valuation and earnings quality from the
// descriptive info map.
type Fundamental struct {
	log zerolog.Logger
}

func NewFundamental(logger zerolog.Logger) *Fundamental {
	return &Fundamental{log: logger.With().Str("stage", consts.StageFundamental).Logger()}
}

func (s *Fundamental) Name() string        { return consts.StageFundamental }
func (s *Fundamental) DependsOn() []string { return []string{consts.StageDataCollection} }

func (s *Fundamental) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if data.Info == nil {
			return 0, "", fmt.Errorf("no descriptive data")
		}

		var signals []float64

		if pe, ok := infoFloat(data.Info, "pe_trailing"); ok && pe > 0 {
			// Cheapest around 10, stretched past 40.
			signals = append(signals, bandScore(pe, 10, 40, true))
		}
		if eps, ok := infoFloat(data.Info, "eps_trailing"); ok {
			if eps > 0 {
				signals = append(signals, 0.7)
			} else {
				signals = append(signals, 0.2)
			}
		}
		if pb, ok := infoFloat(data.Info, "price_book"); ok && pb > 0 {
			signals = append(signals, bandScore(pb, 1, 10, true))
		}
		if peF, okF := infoFloat(data.Info, "pe_forward"); okF && peF > 0 {
			if peT, okT := infoFloat(data.Info, "pe_trailing"); okT && peT > 0 {
				// Forward multiple below trailing implies expected
				// earnings growth.
				if peF < peT {
					signals = append(signals, 0.7)
				} else {
					signals = append(signals, 0.4)
				}
			}
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no fundamental metrics present")
		}
		score := mean(signals)
		return score, fmt.Sprintf("%d metrics, score %.2f", len(signals), score), nil
	})
}

// infoFloat reads a numeric value from the descriptive map, tolerating
// the integer shapes a JSON cache round-trip can produce.
func infoFloat(info map[string]any, key string) (float64, bool) {
	switch v := info[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// bandScore rescales v inside [low, high] to [0,1]. Inverted bands
// score low values best.
func bandScore(v, low, high float64, invert bool) float64 {
	if high <= low {
		return 0.5
	}
	pos := (v - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	if invert {
		return 1 - pos
	}
	return pos
}
