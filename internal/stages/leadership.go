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

// Leadership watches for governance turbulence: executive churn in the
// headlines and a heavy flow of event filings. Quiet is good here.
type Leadership struct {
	log zerolog.Logger
}

func NewLeadership(logger zerolog.Logger) *Leadership {
	return &Leadership{log: logger.With().Str("stage", consts.StageLeadership).Logger()}
}

func (s *Leadership) Name() string        { return consts.StageLeadership }
func (s *Leadership) DependsOn() []string { return []string{consts.StageCashflow} }

var leadershipTerms = []string{
	"ceo", "cfo", "coo", "chairman", "chief executive", "resigns",
	"resignation", "steps down", "appoints", "successor", "board shake",
	"ousted", "fired", "departure",
}

func (s *Leadership) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if len(data.Headlines) == 0 && len(data.Filings) == 0 {
			return 0, "", fmt.Errorf("no governance inputs")
		}

		churn := 0
		for _, h := range data.Headlines {
			lower := strings.ToLower(h.Headline)
			for _, term := range leadershipTerms {
				if strings.Contains(lower, term) {
					churn++
					break
				}
			}
		}

		events := 0
		for _, f := range data.Filings {
			if f.Type == "8-K" || f.Type == "6-K" {
				events++
			}
		}

		// Start stable and subtract for each turbulence signal.
		score := 0.7 - 0.1*float64(churn) - 0.05*float64(events)
		score = clampConfidence(score)
		return score, fmt.Sprintf("churn mentions %d, event filings %d", churn, events), nil
	})
}
