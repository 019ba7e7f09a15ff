package synthesis

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/llm"
	"github.com/quantfold/deepstock/internal/models"
)

// Synthesizer turns accumulated stage results into per-ticker
// decisions, blending the deterministic composite with an optional
// model verdict.
type Synthesizer struct {
	model llm.Service
	log   zerolog.Logger
}

func NewSynthesizer(model llm.Service, logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		model: model,
		log:   logger.With().Str("component", "synthesis").Logger(),
	}
}

// Decide produces the decision for one ticker. It never fails: a model
// timeout, error, or malformed reply just means the composite stands
// unadjusted.
func (s *Synthesizer) Decide(ctx context.Context, snap models.Snapshot, ticker string) models.Decision {
	composite, breakdown := Composite(snap, ticker)

	final := composite
	var verdict *Verdict
	if s.model != nil && s.model.Enabled() {
		verdict = s.consult(ctx, snap, ticker, composite, breakdown)
	}
	if verdict != nil {
		final = Blend(composite, verdict.Score)
	}

	decision := models.Decision{
		Ticker:         ticker,
		Action:         ActionForScore(final),
		Score:          final,
		CompositeScore: composite,
		Grade:          GradeForScore(final),
		Stars:          StarsForScore(final),
		ModelAdjusted:  verdict != nil && final != composite,
	}

	shortReturn := ExpectedReturnDefault(final)
	if verdict != nil && verdict.ExpectedReturn != nil {
		shortReturn = *verdict.ExpectedReturn
	}
	decision.ExpectedReturnShort = shortReturn
	decision.ExpectedReturnLong = scaleReturn(shortReturn,
		snap.Request.ShortHorizonDays, snap.Request.LongHorizonDays)

	if verdict != nil {
		decision.ReasonsFor = verdict.For
		decision.ReasonsAgainst = verdict.Against
	} else {
		decision.ReasonsFor, decision.ReasonsAgainst = pillarReasons(breakdown)
	}
	return decision
}

// consult runs the model exchange for one ticker. Any failure along the
// way, including a contract violation in the reply, returns nil.
func (s *Synthesizer) consult(ctx context.Context, snap models.Snapshot, ticker string, composite float64, breakdown map[string]float64) *Verdict {
	prompt := BuildPrompt(snap, ticker, composite, breakdown)
	reply, err := s.model.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("model unavailable")
		return nil
	}
	verdict, err := ParseVerdict(reply)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("model reply rejected")
		return nil
	}
	s.log.Debug().
		Str("ticker", ticker).
		Float64("model_score", verdict.Score).
		Float64("composite", composite).
		Msg("model verdict accepted")
	return verdict
}

// scaleReturn extrapolates the short-horizon return to the long horizon
// with square-root-of-time scaling, capped at plus or minus 60 percent.
func scaleReturn(shortReturn float64, shortDays, longDays int) float64 {
	if shortDays <= 0 || longDays <= shortDays {
		return shortReturn
	}
	scaled := shortReturn * math.Sqrt(float64(longDays)/float64(shortDays))
	if scaled > 60 {
		return 60
	}
	if scaled < -60 {
		return -60
	}
	return scaled
}

// pillarReasons derives deterministic bullets when no model verdict is
// available: strong pillars argue for, weak pillars against.
func pillarReasons(breakdown map[string]float64) (reasonsFor, reasonsAgainst []string) {
	for _, stage := range PillarNames() {
		score, ok := breakdown[stage]
		if !ok {
			continue
		}
		name := consts.DisplayName(stage)
		switch {
		case score >= 0.6:
			reasonsFor = append(reasonsFor, fmt.Sprintf("%s score %.2f", name, score))
		case score <= 0.4:
			reasonsAgainst = append(reasonsAgainst, fmt.Sprintf("%s score %.2f", name, score))
		}
	}
	if len(reasonsFor) == 0 {
		reasonsFor = append(reasonsFor, "no pillar above 0.6")
	}
	if len(reasonsAgainst) == 0 {
		reasonsAgainst = append(reasonsAgainst, "no pillar below 0.4")
	}
	return reasonsFor, reasonsAgainst
}
