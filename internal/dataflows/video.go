package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantfold/deepstock/internal/models"
)

// Channels we treat as established financial media. Anything else gets
// a flat baseline credibility.
var credibleChannels = map[string]float64{
	"cnbc":            0.9,
	"bloomberg":       0.9,
	"yahoo finance":   0.85,
	"reuters":         0.9,
	"cnbc television": 0.9,
	"the motley fool": 0.7,
	"marketwatch":     0.75,
}

const baselineCredibility = 0.4

// VideoClient searches a YouTube-style data API for ticker coverage.
type VideoClient struct {
	client  *resty.Client
	cache   Cache
	breaker *CircuitBreaker
	limiter *rate.Limiter
	retry   *RetryConfig
	baseURL string
	apiKey  string
	log     zerolog.Logger
}

var _ VideoProvider = (*VideoClient)(nil)

func NewVideoClient(baseURL, apiKey string, cache Cache, logger zerolog.Logger) *VideoClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &VideoClient{
		client:  client,
		cache:   cache,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		retry:   DefaultRetryConfig(),
		baseURL: baseURL,
		apiKey:  apiKey,
		log:     logger.With().Str("component", "video").Logger(),
	}
}

type videoSearchResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchVideos returns recent video coverage for a ticker.
func (vc *VideoClient) FetchVideos(ctx context.Context, ticker string) ([]models.VideoItem, error) {
	if vc.apiKey == "" {
		return nil, unavailable(ticker, "video search (no API key)")
	}
	symbol := NormalizeSymbol(ticker)

	cacheKey := "video/search/" + symbol
	var cached []models.VideoItem
	if vc.cache != nil && vc.cache.Get(cacheKey, &cached) {
		return cached, nil
	}

	if err := vc.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	var result []models.VideoItem
	err := WithRetry(ctx, vc.retry, func() error {
		return vc.breaker.Call(func() error {
			resp, err := vc.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"part":       "snippet",
					"q":          symbol + " stock analysis",
					"type":       "video",
					"order":      "date",
					"maxResults": "15",
					"key":        vc.apiKey,
				}).
				Get("/search")
			if err != nil {
				return fmt.Errorf("video search %s: %w", symbol, err)
			}
			if resp.StatusCode() == 429 || resp.StatusCode() == 403 {
				return fmt.Errorf("video API throttled (%d): %w", resp.StatusCode(), ErrRateLimited)
			}
			if resp.StatusCode() != 200 {
				return fmt.Errorf("video API error %d", resp.StatusCode())
			}

			var payload videoSearchResponse
			if err := json.Unmarshal(resp.Body(), &payload); err != nil {
				return fmt.Errorf("decode video search: %w", ErrParse)
			}

			result = make([]models.VideoItem, 0, len(payload.Items))
			for _, item := range payload.Items {
				result = append(result, models.VideoItem{
					Title:              item.Snippet.Title,
					Description:        item.Snippet.Description,
					Channel:            item.Snippet.ChannelTitle,
					ChannelCredibility: channelCredibility(item.Snippet.ChannelTitle),
				})
			}
			return nil
		})
	})
	if err != nil {
		vc.log.Warn().Err(err).Str("symbol", symbol).Msg("video search failed")
		return nil, err
	}
	if len(result) == 0 {
		return nil, unavailable(symbol, "video search")
	}

	if vc.cache != nil {
		_ = vc.cache.Set(cacheKey, result, 6*time.Hour)
	}
	return result, nil
}

func channelCredibility(channel string) float64 {
	if score, ok := credibleChannels[strings.ToLower(strings.TrimSpace(channel))]; ok {
		return score
	}
	return baselineCredibility
}
