package synthesis

import (
	"sort"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Pillar weights for the deterministic composite. Fixed; they sum to 1.
var pillarWeights = map[string]float64{
	consts.StageTechnical:        0.30,
	consts.StageFundamental:      0.25,
	consts.StageCashflow:         0.20,
	consts.StagePeer:             0.15,
	consts.StageAnalystConsensus: 0.10,
}

// neutralScore stands in for a pillar whose stage produced nothing, so
// a missing pillar pulls the composite toward indifference instead of
// toward a hard sell.
const neutralScore = 0.5

// Composite computes the weighted pillar score for one ticker from the
// accumulated stage results. The returned breakdown maps each pillar
// stage to the score actually used.
func Composite(snap models.Snapshot, ticker string) (float64, map[string]float64) {
	breakdown := make(map[string]float64, len(pillarWeights))
	total := 0.0
	for stage, weight := range pillarWeights {
		score, ok := PillarScore(snap, stage, ticker)
		if !ok {
			score = neutralScore
		}
		breakdown[stage] = score
		total += score * weight
	}
	return clamp01(total), breakdown
}

// PillarScore extracts a stage's normalized [0,1] score for a ticker.
func PillarScore(snap models.Snapshot, stage, ticker string) (float64, bool) {
	res, ok := snap.Result(stage)
	if !ok {
		return 0, false
	}
	scores, ok := res.Details["scores"].(map[string]float64)
	if !ok {
		return 0, false
	}
	v, ok := scores[ticker]
	if !ok {
		return 0, false
	}
	return clamp01(v), true
}

// Blend folds an optional model score into the composite. A model score
// within 0.1 of the composite is considered agreement and ignored;
// beyond that the adjustment is capped at plus or minus 0.2.
func Blend(composite, modelScore float64) float64 {
	diff := modelScore - composite
	if diff >= -0.1 && diff <= 0.1 {
		return composite
	}
	if diff > 0.2 {
		diff = 0.2
	}
	if diff < -0.2 {
		diff = -0.2
	}
	return clamp01(composite + diff)
}

// ExpectedReturnDefault approximates an expected-return percentage when
// the model gave none. Centered at 0.5, spanning -20% to +20%.
func ExpectedReturnDefault(score float64) float64 {
	return (score - 0.5) * 40
}

// Threshold tables. Cutoffs are inclusive on the lower bound of each
// bucket: a score of exactly 0.85 is a Strong Buy.

func ActionForScore(score float64) models.Action {
	switch {
	case score >= 0.85:
		return models.ActionStrongBuy
	case score >= 0.70:
		return models.ActionBuy
	case score >= 0.55:
		return models.ActionHold
	case score >= 0.40:
		return models.ActionSell
	default:
		return models.ActionStrongSell
	}
}

func GradeForScore(score float64) string {
	switch {
	case score >= 0.85:
		return "A"
	case score >= 0.70:
		return "B"
	case score >= 0.55:
		return "C"
	case score >= 0.40:
		return "D"
	default:
		return "F"
	}
}

func StarsForScore(score float64) int {
	switch {
	case score >= 0.85:
		return 5
	case score >= 0.70:
		return 4
	case score >= 0.55:
		return 3
	case score >= 0.40:
		return 2
	case score >= 0.20:
		return 1
	default:
		return 0
	}
}

// PillarNames returns the pillar stage names in a stable order, for
// display and prompt construction.
func PillarNames() []string {
	names := make([]string, 0, len(pillarWeights))
	for name := range pillarWeights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if pillarWeights[names[i]] != pillarWeights[names[j]] {
			return pillarWeights[names[i]] > pillarWeights[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
