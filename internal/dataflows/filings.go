package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantfold/deepstock/internal/models"
)

// FilingsClient retrieves recent regulatory filings from an EDGAR-style
// full-text search endpoint. Non-US markets usually come back empty;
// stages treat that as partial data, not an error.
type FilingsClient struct {
	client  *resty.Client
	cache   Cache
	breaker *CircuitBreaker
	limiter *rate.Limiter
	retry   *RetryConfig
	log     zerolog.Logger
}

var _ FilingsProvider = (*FilingsClient)(nil)

func NewFilingsClient(baseURL string, cache Cache, logger zerolog.Logger) *FilingsClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "deepstock/1.0 research@quantfold.dev")

	return &FilingsClient{
		client:  client,
		cache:   cache,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		retry:   DefaultRetryConfig(),
		log:     logger.With().Str("component", "filings").Logger(),
	}
}

type filingsSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Ciks         []string `json:"ciks"`
				FormType     string   `json:"root_forms"`
				FileType     string   `json:"file_type"`
				FileDate     string   `json:"file_date"`
				DisplayNames []string `json:"display_names"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchFilings returns structured filing records for a ticker.
func (fc *FilingsClient) FetchFilings(ctx context.Context, ticker, market string) ([]models.Filing, error) {
	symbol := NormalizeSymbol(ticker)

	cacheKey := "filings/" + market + "/" + symbol
	var cached []models.Filing
	if fc.cache != nil && fc.cache.Get(cacheKey, &cached) {
		return cached, nil
	}

	if err := fc.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	var result []models.Filing
	err := WithRetry(ctx, fc.retry, func() error {
		return fc.breaker.Call(func() error {
			resp, err := fc.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"q":         symbol,
					"dateRange": "custom",
					"startdt":   time.Now().AddDate(-1, 0, 0).Format("2006-01-02"),
					"enddt":     time.Now().Format("2006-01-02"),
				}).
				Get("/search-index")
			if err != nil {
				return fmt.Errorf("filings search %s: %w", symbol, err)
			}
			if resp.StatusCode() == 429 {
				return fmt.Errorf("filings throttled: %w", ErrRateLimited)
			}
			if resp.StatusCode() == 404 {
				return unavailable(symbol, "filings")
			}
			if resp.StatusCode() != 200 {
				return fmt.Errorf("filings API error %d", resp.StatusCode())
			}

			var payload filingsSearchResponse
			if err := json.Unmarshal(resp.Body(), &payload); err != nil {
				return fmt.Errorf("decode filings: %w", ErrParse)
			}

			result = result[:0]
			for i, hit := range payload.Hits.Hits {
				src := hit.Source
				filedAt, _ := time.Parse("2006-01-02", src.FileDate)
				title := src.FormType
				if len(src.DisplayNames) > 0 {
					title = src.DisplayNames[0] + " " + src.FormType
				}
				filing := models.Filing{
					Symbol:  symbol,
					Market:  market,
					Type:    src.FormType,
					Title:   title,
					FiledAt: filedAt,
					Fields: map[string]string{
						"rank": strconv.Itoa(i + 1),
					},
				}
				if len(src.Ciks) > 0 {
					filing.Fields["cik"] = src.Ciks[0]
				}
				result = append(result, filing)
			}
			return nil
		})
	})
	if err != nil {
		fc.log.Warn().Err(err).Str("symbol", symbol).Str("market", market).Msg("filings fetch failed")
		return nil, err
	}

	if fc.cache != nil {
		_ = fc.cache.Set(cacheKey, result, 12*time.Hour)
	}
	return result, nil
}
