package synthesis

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// stubModel returns a canned reply, or an error when reply is empty.
type stubModel struct {
	reply string
	calls int
}

func (s *stubModel) Enabled() bool { return true }

func (s *stubModel) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if s.reply == "" {
		return "", errors.New("model down")
	}
	return s.reply, nil
}

func evenSnapshot() models.Snapshot {
	return snapWithScores("AAPL", map[string]float64{
		consts.StageTechnical:        0.5,
		consts.StageFundamental:      0.5,
		consts.StageCashflow:         0.5,
		consts.StagePeer:             0.5,
		consts.StageAnalystConsensus: 0.5,
	})
}

func TestDecideWithoutModelUsesComposite(t *testing.T) {
	synth := NewSynthesizer(nil, zerolog.Nop())
	d := synth.Decide(context.Background(), evenSnapshot(), "AAPL")

	assert.InDelta(t, 0.5, d.Score, 1e-9)
	assert.Equal(t, d.CompositeScore, d.Score)
	assert.False(t, d.ModelAdjusted)
	assert.Equal(t, models.ActionSell, d.Action)
	assert.NotEmpty(t, d.ReasonsFor)
	assert.NotEmpty(t, d.ReasonsAgainst)
}

func TestDecideBlendsAcceptedVerdict(t *testing.T) {
	model := &stubModel{reply: "SCORE: 0.9\nACTION: Strong Buy\nFOR: momentum\nFOR: earnings\nAGAINST: valuation\nEXPECTED_RETURN: 12"}
	synth := NewSynthesizer(model, zerolog.Nop())

	d := synth.Decide(context.Background(), evenSnapshot(), "AAPL")
	require.Equal(t, 1, model.calls)
	assert.InDelta(t, 0.7, d.Score, 1e-9, "adjustment capped at +0.2")
	assert.InDelta(t, 0.5, d.CompositeScore, 1e-9)
	assert.True(t, d.ModelAdjusted)
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.Equal(t, 12.0, d.ExpectedReturnShort)
	assert.Equal(t, []string{"momentum", "earnings"}, d.ReasonsFor)
}

func TestDecideRejectsMalformedReply(t *testing.T) {
	model := &stubModel{reply: "I would buy this stock because it is great."}
	synth := NewSynthesizer(model, zerolog.Nop())

	d := synth.Decide(context.Background(), evenSnapshot(), "AAPL")
	assert.False(t, d.ModelAdjusted)
	assert.Equal(t, d.CompositeScore, d.Score)
}

func TestDecideSurvivesModelFailure(t *testing.T) {
	model := &stubModel{}
	synth := NewSynthesizer(model, zerolog.Nop())

	d := synth.Decide(context.Background(), evenSnapshot(), "AAPL")
	assert.False(t, d.ModelAdjusted)
	assert.InDelta(t, ExpectedReturnDefault(d.Score), d.ExpectedReturnShort, 1e-9)
}

func TestDecideDeterministicAcrossRuns(t *testing.T) {
	model := &stubModel{reply: goodReply}
	synth := NewSynthesizer(model, zerolog.Nop())
	snap := evenSnapshot()

	first := synth.Decide(context.Background(), snap, "AAPL")
	second := synth.Decide(context.Background(), snap, "AAPL")
	assert.Equal(t, first, second)
}

func TestScaleReturnLongHorizon(t *testing.T) {
	assert.InDelta(t, 10.0, scaleReturn(10, 0, 365), 1e-9, "degenerate horizons pass through")
	assert.InDelta(t, 20.0, scaleReturn(10, 30, 120), 1e-9, "sqrt of 4x time doubles")
	assert.Equal(t, 60.0, scaleReturn(40, 7, 730), "capped at +60")
}
