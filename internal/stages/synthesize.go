package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
	"github.com/quantfold/deepstock/internal/synthesis"
)

// Synthesize is the terminal stage: it turns the accumulated analysis
// into one decision per ticker and freezes the run into a Report. It is
// the only writer of FinalOutput.
type Synthesize struct {
	synth *synthesis.Synthesizer
	log   zerolog.Logger
}

func NewSynthesize(synth *synthesis.Synthesizer, logger zerolog.Logger) *Synthesize {
	return &Synthesize{
		synth: synth,
		log:   logger.With().Str("stage", consts.StageSynthesis).Logger(),
	}
}

func (s *Synthesize) Name() string { return consts.StageSynthesis }

func (s *Synthesize) DependsOn() []string {
	return []string{
		consts.StageDataCollection,
		consts.StageTechnical,
		consts.StageFundamental,
		consts.StageNewsSentiment,
		consts.StageVideoSentiment,
		consts.StagePeer,
		consts.StageAnalystConsensus,
		consts.StageCashflow,
		consts.StageLeadership,
		consts.StageSectorMacro,
		consts.StageGrowth,
		consts.StageValuation,
	}
}

func (s *Synthesize) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()

	// Detach the stage map from the live state before freezing it into
	// the report.
	stageResults := make(map[string]models.StageResult, len(snap.Analysis))
	for name, res := range snap.Analysis {
		stageResults[name] = res
	}

	report := &models.Report{
		RunID:       snap.RunID,
		GeneratedAt: time.Now(),
		Request:     snap.Request,
	}

	decided := 0
	adjusted := 0
	for _, ticker := range snap.Tickers {
		decision := s.synth.Decide(ctx, snap, ticker)
		if decision.ModelAdjusted {
			adjusted++
		}
		if data := snap.Data(ticker); data.Usable() {
			decided++
		}
		report.Tickers = append(report.Tickers, models.TickerReport{
			Ticker:   ticker,
			Stages:   stageResults,
			Decision: decision,
		})
	}

	out := result(s.Name(), started, info, models.StageResult{
		Summary:    fmt.Sprintf("decided %d tickers, %d model-adjusted", len(report.Tickers), adjusted),
		Confidence: presenceConfidence(decided, len(snap.Tickers)),
		Details: map[string]any{
			"model_adjusted": adjusted,
		},
	})
	out.FinalOutput = report
	return out, nil
}
