package stages

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/internal/dataflows"
	"github.com/quantfold/deepstock/internal/models"
)

// stubMarketData serves canned series and fails for listed tickers.
type stubMarketData struct {
	failing map[string]bool
}

func (s *stubMarketData) FetchSeries(ctx context.Context, ticker string, period time.Duration) ([]models.Candle, error) {
	if s.failing[ticker] {
		return nil, assert.AnError
	}
	return syntheticSeries(ticker, 60, 100, 0.5), nil
}

func (s *stubMarketData) FetchInfo(ctx context.Context, ticker string) (map[string]any, error) {
	if s.failing[ticker] {
		return nil, assert.AnError
	}
	return map[string]any{"symbol": ticker, "price": 100.0}, nil
}

// syntheticSeries builds a daily series with a constant drift per bar.
func syntheticSeries(symbol string, bars int, start, drift float64) []models.Candle {
	series := make([]models.Candle, bars)
	day := time.Now().AddDate(0, 0, -bars)
	price := start
	for i := range series {
		series[i] = models.Candle{
			Symbol: symbol,
			Date:   day.AddDate(0, 0, i),
			Open:   decimal.NewFromFloat(price),
			High:   decimal.NewFromFloat(price * 1.01),
			Low:    decimal.NewFromFloat(price * 0.99),
			Close:  decimal.NewFromFloat(price),
			Volume: 1_000_000,
		}
		price += drift
	}
	return series
}

func TestDataCollectionPartialCoverage(t *testing.T) {
	providers := dataflows.Providers{
		MarketData: &stubMarketData{failing: map[string]bool{"AMZN": true, "META": true}},
	}
	stage := NewDataCollection(providers, zerolog.Nop())

	snap := models.Snapshot{
		Tickers: []string{"AAPL", "MSFT", "GOOG", "AMZN", "META"},
		Request: models.AnalysisRequest{Market: "US"},
	}
	patch, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)

	res := patch.Analysis[stage.Name()]
	assert.InDelta(t, 0.6, res.Confidence, 1e-9, "3 of 5 tickers collected")

	require.NotNil(t, patch.RawData["AAPL"])
	assert.True(t, patch.RawData["AAPL"].Usable())
	require.NotNil(t, patch.RawData["AMZN"])
	assert.False(t, patch.RawData["AMZN"].Usable())
	assert.NotEmpty(t, patch.RawData["AMZN"].FetchError)
}

// stubFilings records the market argument each fetch was made with.
type stubFilings struct {
	markets []string
}

func (s *stubFilings) FetchFilings(ctx context.Context, ticker, market string) ([]models.Filing, error) {
	s.markets = append(s.markets, market)
	return []models.Filing{{Symbol: ticker, Market: market, Type: "10-K"}}, nil
}

func TestDataCollectionPassesRequestMarketToFilings(t *testing.T) {
	filings := &stubFilings{}
	providers := dataflows.Providers{
		MarketData: &stubMarketData{},
		Filings:    filings,
	}
	stage := NewDataCollection(providers, zerolog.Nop())

	snap := models.Snapshot{
		Tickers: []string{"0700"},
		Request: models.AnalysisRequest{Market: "HK"},
	}
	_, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)

	require.Len(t, filings.markets, 1)
	assert.Equal(t, "HK", filings.markets[0])
}

func TestDataCollectionNoProvider(t *testing.T) {
	stage := NewDataCollection(dataflows.Providers{}, zerolog.Nop())

	snap := models.Snapshot{Tickers: []string{"AAPL"}, Request: models.AnalysisRequest{Market: "US"}}
	patch, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, patch.Analysis[stage.Name()].Confidence)
}

func TestTechnicalScoresTrendingSeries(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{
		"AAPL": {Symbol: "AAPL", Series: syntheticSeries("AAPL", 150, 100, 0.5)},
		"MSFT": {Symbol: "MSFT", Series: syntheticSeries("MSFT", 150, 200, -0.8)},
	})

	stage := NewTechnical(zerolog.Nop())
	patch, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)

	res := patch.Analysis[stage.Name()]
	assert.Equal(t, 0.9, res.Confidence)
	scores := res.Details["scores"].(map[string]float64)
	require.Contains(t, scores, "AAPL")
	require.Contains(t, scores, "MSFT")
	for ticker, score := range scores {
		assert.GreaterOrEqual(t, score, 0.0, ticker)
		assert.LessOrEqual(t, score, 1.0, ticker)
	}
	assert.Equal(t, 0.9, res.PerTicker["AAPL"])
}

func TestTechnicalShortSeriesDegrades(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{
		"AAPL": {Symbol: "AAPL", Series: syntheticSeries("AAPL", 10, 100, 0.5)},
	})
	stage := NewTechnical(zerolog.Nop())
	patch, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, patch.Analysis[stage.Name()].Confidence)
}

func TestFundamentalScoresFromInfo(t *testing.T) {
	snap := snapshotWith(map[string]*models.TickerData{
		"AAPL": {Symbol: "AAPL", Info: map[string]any{
			"pe_trailing":  15.0,
			"pe_forward":   12.0,
			"eps_trailing": 6.1,
			"price_book":   3.0,
		}},
		"MSFT": {Symbol: "MSFT", Info: map[string]any{
			"pe_trailing":  80.0,
			"eps_trailing": -2.0,
		}},
	})

	stage := NewFundamental(zerolog.Nop())
	patch, err := stage.Run(context.Background(), snap, RunInfo{})
	require.NoError(t, err)

	scores := patch.Analysis[stage.Name()].Details["scores"].(map[string]float64)
	assert.Greater(t, scores["AAPL"], 0.6)
	assert.Less(t, scores["MSFT"], 0.3)
}
