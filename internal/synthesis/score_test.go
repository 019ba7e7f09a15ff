package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

func snapWithScores(ticker string, scores map[string]float64) models.Snapshot {
	analysis := make(map[string]models.StageResult, len(scores))
	for stage, score := range scores {
		analysis[stage] = models.StageResult{
			Stage:      stage,
			Confidence: 0.9,
			Details: map[string]any{
				"scores": map[string]float64{ticker: score},
			},
		}
	}
	return models.Snapshot{
		Tickers:  []string{ticker},
		Analysis: analysis,
		Request:  models.AnalysisRequest{ShortHorizonDays: 30, LongHorizonDays: 365},
	}
}

func TestCompositeWeightedSum(t *testing.T) {
	snap := snapWithScores("AAPL", map[string]float64{
		consts.StageTechnical:        0.8,
		consts.StageFundamental:      0.7,
		consts.StageCashflow:         0.6,
		consts.StagePeer:             0.5,
		consts.StageAnalystConsensus: 0.9,
	})

	composite, breakdown := Composite(snap, "AAPL")
	require.InDelta(t, 0.70, composite, 1e-9)
	assert.Len(t, breakdown, 5)
	assert.Equal(t, models.ActionBuy, ActionForScore(composite))
}

func TestCompositeMissingPillarIsNeutral(t *testing.T) {
	snap := snapWithScores("AAPL", map[string]float64{
		consts.StageTechnical: 1.0,
	})

	composite, breakdown := Composite(snap, "AAPL")
	// 1.0*0.30 + 0.5*(0.25+0.20+0.15+0.10)
	require.InDelta(t, 0.65, composite, 1e-9)
	assert.Equal(t, 0.5, breakdown[consts.StageFundamental])
}

func TestActionThresholdsInclusiveLowerBound(t *testing.T) {
	assert.Equal(t, models.ActionStrongBuy, ActionForScore(0.85))
	assert.Equal(t, models.ActionBuy, ActionForScore(0.849999))
	assert.Equal(t, models.ActionBuy, ActionForScore(0.70))
	assert.Equal(t, models.ActionHold, ActionForScore(0.699999))
	assert.Equal(t, models.ActionHold, ActionForScore(0.55))
	assert.Equal(t, models.ActionSell, ActionForScore(0.549999))
	assert.Equal(t, models.ActionSell, ActionForScore(0.40))
	assert.Equal(t, models.ActionStrongSell, ActionForScore(0.399999))
}

func TestGradeAndStarTables(t *testing.T) {
	assert.Equal(t, "A", GradeForScore(0.85))
	assert.Equal(t, "B", GradeForScore(0.70))
	assert.Equal(t, "C", GradeForScore(0.55))
	assert.Equal(t, "D", GradeForScore(0.40))
	assert.Equal(t, "F", GradeForScore(0.39))

	assert.Equal(t, 5, StarsForScore(0.85))
	assert.Equal(t, 4, StarsForScore(0.70))
	assert.Equal(t, 3, StarsForScore(0.55))
	assert.Equal(t, 2, StarsForScore(0.40))
	assert.Equal(t, 1, StarsForScore(0.20))
	assert.Equal(t, 0, StarsForScore(0.19))
}

func TestBlendAgreementUnchanged(t *testing.T) {
	assert.Equal(t, 0.5, Blend(0.5, 0.55))
	assert.Equal(t, 0.5, Blend(0.5, 0.45))
	assert.Equal(t, 0.5, Blend(0.5, 0.6))
}

func TestBlendAppliesCappedAdjustment(t *testing.T) {
	assert.InDelta(t, 0.65, Blend(0.5, 0.65), 1e-9)
	assert.InDelta(t, 0.70, Blend(0.5, 0.9), 1e-9, "positive adjustment capped at +0.2")
	assert.InDelta(t, 0.30, Blend(0.5, 0.1), 1e-9, "negative adjustment capped at -0.2")
	assert.InDelta(t, 1.0, Blend(0.85, 1.0), 1e-9, "result clamped into [0,1]")
}

func TestExpectedReturnDefault(t *testing.T) {
	assert.InDelta(t, 0.0, ExpectedReturnDefault(0.5), 1e-9)
	assert.InDelta(t, 10.0, ExpectedReturnDefault(0.75), 1e-9)
	assert.InDelta(t, -20.0, ExpectedReturnDefault(0.0), 1e-9)
}
