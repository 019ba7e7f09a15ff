package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Growth scores expansion signals: implied earnings growth from the
// multiple spread and medium-term price trend.
type Growth struct {
	log zerolog.Logger
}

func NewGrowth(logger zerolog.Logger) *Growth {
	return &Growth{log: logger.With().Str("stage", consts.StageGrowth).Logger()}
}

func (s *Growth) Name() string { return consts.StageGrowth }

func (s *Growth) DependsOn() []string {
	return []string{consts.StageSectorMacro}
}

func (s *Growth) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		var signals []float64

		if epsF, okF := infoFloat(data.Info, "eps_forward"); okF {
			if epsT, okT := infoFloat(data.Info, "eps_trailing"); okT && epsT != 0 {
				implied := (epsF - epsT) / absFloat(epsT)
				// -50% shrinkage to +50% growth spans the band.
				signals = append(signals, bandScore(implied, -0.5, 0.5, false))
			}
		}

		if m, ok := momentum(data.Closes(), 90); ok {
			signals = append(signals, clampConfidence(0.5+m))
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no growth signals")
		}
		score := mean(signals)
		return score, fmt.Sprintf("%d signals, score %.2f", len(signals), score), nil
	})
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
