package dataflows

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/quantfold/deepstock/internal/models"
)

// YahooClient serves market data from Yahoo Finance.
type YahooClient struct {
	cache   Cache
	breaker *CircuitBreaker
	limiter *rate.Limiter
	retry   *RetryConfig
	log     zerolog.Logger
}

var _ MarketDataProvider = (*YahooClient)(nil)

func NewYahooClient(cache Cache, logger zerolog.Logger) *YahooClient {
	return &YahooClient{
		cache:   cache,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   DefaultRetryConfig(),
		log:     logger.With().Str("component", "yahoo").Logger(),
	}
}

// FetchSeries returns daily candles covering the given period.
func (yf *YahooClient) FetchSeries(ctx context.Context, ticker string, period time.Duration) ([]models.Candle, error) {
	symbol := NormalizeSymbol(ticker)
	end := time.Now()
	start := end.Add(-period)

	cacheKey := fmt.Sprintf("yahoo/series/%s/%s/%s",
		symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
	var cached []models.Candle
	if yf.cache != nil && yf.cache.Get(cacheKey, &cached) {
		return cached, nil
	}

	if err := yf.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	var result []models.Candle
	err := WithRetry(ctx, yf.retry, func() error {
		return yf.breaker.Call(func() error {
			params := &chart.Params{
				Symbol:   symbol,
				Start:    datetime.New(&start),
				End:      datetime.New(&end),
				Interval: datetime.OneDay,
			}

			iter := chart.Get(params)
			result = result[:0]
			for iter.Next() {
				bar := iter.Bar()
				result = append(result, models.Candle{
					Symbol:    symbol,
					Date:      time.Unix(int64(bar.Timestamp), 0),
					Open:      bar.Open,
					High:      bar.High,
					Low:       bar.Low,
					Close:     bar.Close,
					AdjClose:  bar.AdjClose,
					Volume:    int64(bar.Volume),
					Timestamp: time.Now(),
				})
			}
			if err := iter.Err(); err != nil {
				return fmt.Errorf("chart %s: %w", symbol, err)
			}
			return nil
		})
	})
	if err != nil {
		yf.log.Warn().Err(err).Str("symbol", symbol).Msg("series fetch failed")
		return nil, err
	}
	if len(result) == 0 {
		return nil, unavailable(symbol, "yahoo chart")
	}

	if yf.cache != nil {
		_ = yf.cache.Set(cacheKey, result, 24*time.Hour)
	}
	return result, nil
}

// FetchInfo returns descriptive quote data for a symbol.
func (yf *YahooClient) FetchInfo(ctx context.Context, ticker string) (map[string]any, error) {
	symbol := NormalizeSymbol(ticker)

	cacheKey := "yahoo/info/" + symbol
	var cached map[string]any
	if yf.cache != nil && yf.cache.Get(cacheKey, &cached) {
		return cached, nil
	}

	if err := yf.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	var info map[string]any
	err := WithRetry(ctx, yf.retry, func() error {
		return yf.breaker.Call(func() error {
			q, err := equity.Get(symbol)
			if err != nil {
				return fmt.Errorf("equity %s: %w", symbol, err)
			}
			if q == nil {
				return unavailable(symbol, "yahoo equity")
			}

			info = map[string]any{
				"symbol":       symbol,
				"company_name": q.ShortName,
				"exchange":     q.FullExchangeName,
				"currency":     q.CurrencyID,
				"market_state": q.MarketState,
				"price":        q.RegularMarketPrice,
				"prev_close":   q.RegularMarketPreviousClose,
				"market_cap":   q.MarketCap,
				"pe_trailing":  q.TrailingPE,
				"pe_forward":   q.ForwardPE,
				"eps_trailing": q.EpsTrailingTwelveMonths,
				"eps_forward":  q.EpsForward,
				"price_book":   q.PriceToBook,
				"book_value":   q.BookValue,
				"high_52w":     q.FiftyTwoWeekHigh,
				"low_52w":      q.FiftyTwoWeekLow,
				"avg_volume":   q.AverageDailyVolume3Month,
				"quote_type":   q.QuoteType,
				"fetched_at":   time.Now().Format(time.RFC3339),
			}
			return nil
		})
	})
	if err != nil {
		yf.log.Warn().Err(err).Str("symbol", symbol).Msg("info fetch failed")
		return nil, err
	}

	if yf.cache != nil {
		_ = yf.cache.Set(cacheKey, info, 6*time.Hour)
	}
	return info, nil
}

// decimalFromFloat keeps candle construction consistent between
// providers that report raw floats.
func decimalFromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
