package stages

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/internal/models"
)

func snapshotWith(data map[string]*models.TickerData) models.Snapshot {
	tickers := make([]string, 0, len(data))
	for _, ticker := range []string{"AAPL", "MSFT", "GOOG", "AMZN", "META"} {
		if _, ok := data[ticker]; ok {
			tickers = append(tickers, ticker)
		}
	}
	return models.Snapshot{
		RunID:    "test-run",
		Tickers:  tickers,
		RawData:  data,
		Analysis: make(map[string]models.StageResult),
		Request:  models.AnalysisRequest{Market: "US", ShortHorizonDays: 30, LongHorizonDays: 365},
	}
}

func usableData(symbol string) *models.TickerData {
	return &models.TickerData{Symbol: symbol, Info: map[string]any{"price": 100.0}}
}

func TestConfidencePolicies(t *testing.T) {
	assert.Equal(t, 0.6, coverageConfidence(3, 5))
	assert.Equal(t, 1.0, coverageConfidence(5, 5))
	assert.Equal(t, 0.0, coverageConfidence(0, 5))
	assert.Equal(t, 0.0, coverageConfidence(0, 0))

	assert.Equal(t, 0.9, presenceConfidence(5, 5))
	assert.Equal(t, 0.5, presenceConfidence(3, 5))
	assert.Equal(t, 0.0, presenceConfidence(0, 5))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, clampConfidence(-0.2))
	assert.Equal(t, 1.0, clampConfidence(1.7))
	assert.Equal(t, 0.42, clampConfidence(0.42))
}

func TestResultClampsAndStamps(t *testing.T) {
	patch := result("some_stage", time.Now().Add(-time.Second), RunInfo{Widened: true}, models.StageResult{
		Confidence: 2.5,
	})
	res := patch.Analysis["some_stage"]
	assert.Equal(t, "some_stage", res.Stage)
	assert.Equal(t, 1.0, res.Confidence)
	assert.True(t, res.Widened)
	assert.GreaterOrEqual(t, res.Elapsed, time.Second)
}

func TestEvalTickersPartialPresence(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{
		"AAPL": usableData("AAPL"),
		"MSFT": usableData("MSFT"),
		"GOOG": {Symbol: "GOOG", FetchError: "source down"},
	})

	patch, err := evalTickers("scored", time.Now(), RunInfo{}, snap,
		func(ticker string, data *models.TickerData) (float64, string, error) {
			return 0.8, "ok", nil
		})
	require.NoError(t, err)

	res := patch.Analysis["scored"]
	assert.Equal(t, 0.5, res.Confidence, "partial presence")
	assert.Equal(t, 0.9, res.PerTicker["AAPL"])
	assert.Equal(t, 0.0, res.PerTicker["GOOG"], "unusable ticker scores zero")

	scores := res.Details["scores"].(map[string]float64)
	assert.Equal(t, 0.8, scores["AAPL"])
	_, scored := scores["GOOG"]
	assert.False(t, scored)
}

func TestEvalTickersFullAndEmpty(t *testing.T) {
	full := snapshotWith(map[string]*models.TickerData{
		"AAPL": usableData("AAPL"),
		"MSFT": usableData("MSFT"),
	})
	patch, err := evalTickers("s", time.Now(), RunInfo{}, full,
		func(ticker string, data *models.TickerData) (float64, string, error) {
			return 0.5, "", nil
		})
	require.NoError(t, err)
	assert.Equal(t, 0.9, patch.Analysis["s"].Confidence)

	empty := snapshotWith(map[string]*models.TickerData{
		"AAPL": {Symbol: "AAPL", FetchError: "down"},
	})
	patch, err = evalTickers("s", time.Now(), RunInfo{}, empty,
		func(ticker string, data *models.TickerData) (float64, string, error) {
			return 0.5, "", nil
		})
	require.NoError(t, err)
	assert.Equal(t, 0.0, patch.Analysis["s"].Confidence)
}

func TestEvalTickersEvalErrorDegradesTicker(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{
		"AAPL": usableData("AAPL"),
		"MSFT": usableData("MSFT"),
	})
	patch, err := evalTickers("s", time.Now(), RunInfo{}, snap,
		func(ticker string, data *models.TickerData) (float64, string, error) {
			if ticker == "MSFT" {
				return 0, "", errors.New("no metrics")
			}
			return 0.7, "", nil
		})
	require.NoError(t, err)

	res := patch.Analysis["s"]
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, 0.0, res.PerTicker["MSFT"])
	assert.Contains(t, res.Summary, "no metrics")
}

func TestEvalTickersClampsScores(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{"AAPL": usableData("AAPL")})
	patch, err := evalTickers("s", time.Now(), RunInfo{}, snap,
		func(ticker string, data *models.TickerData) (float64, string, error) {
			return 1.8, "", nil
		})
	require.NoError(t, err)
	scores := patch.Analysis["s"].Details["scores"].(map[string]float64)
	assert.Equal(t, 1.0, scores["AAPL"])
}
