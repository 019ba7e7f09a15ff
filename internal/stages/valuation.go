package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Valuation judges where the price sits: multiple bands plus the
// position inside the 52-week range. It is not a pillar; its summary
// feeds the synthesis prompt.
type Valuation struct {
	log zerolog.Logger
}

func NewValuation(logger zerolog.Logger) *Valuation {
	return &Valuation{log: logger.With().Str("stage", consts.StageValuation).Logger()}
}

func (s *Valuation) Name() string { return consts.StageValuation }

func (s *Valuation) DependsOn() []string {
	return []string{consts.StageGrowth}
}

func (s *Valuation) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if data.Info == nil {
			return 0, "", fmt.Errorf("no descriptive data")
		}

		var signals []float64
		label := "fairly valued"

		price, havePrice := infoFloat(data.Info, "price")
		high, haveHigh := infoFloat(data.Info, "high_52w")
		low, haveLow := infoFloat(data.Info, "low_52w")
		if havePrice && haveHigh && haveLow && high > low {
			rangePos := (price - low) / (high - low)
			// Near the lows scores as cheap.
			signals = append(signals, clampConfidence(1-rangePos))
			switch {
			case rangePos >= 0.85:
				label = "near 52-week high"
			case rangePos <= 0.15:
				label = "near 52-week low"
			}
		}

		if pe, ok := infoFloat(data.Info, "pe_trailing"); ok && pe > 0 {
			signals = append(signals, bandScore(pe, 8, 45, true))
			if pe > 45 {
				label = "rich multiple"
			}
		}
		if pb, ok := infoFloat(data.Info, "price_book"); ok && pb > 0 {
			signals = append(signals, bandScore(pb, 0.8, 12, true))
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no valuation inputs")
		}
		score := mean(signals)
		return score, fmt.Sprintf("%s, score %.2f", label, score), nil
	})
}
