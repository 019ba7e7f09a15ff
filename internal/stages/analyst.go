package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// AnalystConsensus approximates street positioning from two observable
// proxies: explicit rating language in the collected headlines and the
// forward-versus-trailing earnings multiple.
type AnalystConsensus struct {
	log zerolog.Logger
}

func NewAnalystConsensus(logger zerolog.Logger) *AnalystConsensus {
	return &AnalystConsensus{log: logger.With().Str("stage", consts.StageAnalystConsensus).Logger()}
}

func (s *AnalystConsensus) Name() string { return consts.StageAnalystConsensus }

func (s *AnalystConsensus) DependsOn() []string {
	return []string{consts.StagePeer}
}

func (s *AnalystConsensus) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		var signals []float64

		upgrades, downgrades := ratingMentions(data.Headlines)
		if upgrades+downgrades > 0 {
			signals = append(signals, float64(upgrades)/float64(upgrades+downgrades))
		}

		if peF, okF := infoFloat(data.Info, "pe_forward"); okF && peF > 0 {
			if peT, okT := infoFloat(data.Info, "pe_trailing"); okT && peT > 0 {
				// Consensus earnings estimates above trailing reality
				// compress the forward multiple.
				growth := (peT - peF) / peT
				signals = append(signals, clampConfidence(0.5+growth))
			}
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no consensus signals")
		}
		score := mean(signals)
		return score, fmt.Sprintf("upgrades %d, downgrades %d, score %.2f", upgrades, downgrades, score), nil
	})
}

func ratingMentions(headlines []models.NewsHeadline) (upgrades, downgrades int) {
	for _, h := range headlines {
		lower := strings.ToLower(h.Headline)
		switch {
		case strings.Contains(lower, "upgrade"),
			strings.Contains(lower, "raises price target"),
			strings.Contains(lower, "initiates") && strings.Contains(lower, "buy"),
			strings.Contains(lower, "overweight"):
			upgrades++
		case strings.Contains(lower, "downgrade"),
			strings.Contains(lower, "cuts price target"),
			strings.Contains(lower, "lowers price target"),
			strings.Contains(lower, "underweight"):
			downgrades++
		}
	}
	return upgrades, downgrades
}
