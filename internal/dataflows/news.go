package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantfold/deepstock/internal/models"
)

// NewsClient serves headlines from the Finnhub company-news API, with a
// Google News HTML scrape as the keyless fallback.
type NewsClient struct {
	client  *resty.Client
	cache   Cache
	breaker *CircuitBreaker
	limiter *rate.Limiter
	retry   *RetryConfig
	apiKey  string
	log     zerolog.Logger
}

var _ NewsProvider = (*NewsClient)(nil)

func NewNewsClient(apiKey string, cache Cache, logger zerolog.Logger) *NewsClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; deepstock/1.0)")

	return &NewsClient{
		client:  client,
		cache:   cache,
		breaker: NewCircuitBreaker(5, time.Minute, 30*time.Second),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		retry:   DefaultRetryConfig(),
		apiKey:  apiKey,
		log:     logger.With().Str("component", "news").Logger(),
	}
}

type finnhubNews struct {
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
}

// FetchHeadlines returns recent headlines for a ticker.
func (nc *NewsClient) FetchHeadlines(ctx context.Context, ticker string) ([]models.NewsHeadline, error) {
	symbol := NormalizeSymbol(ticker)

	cacheKey := "news/headlines/" + symbol
	var cached []models.NewsHeadline
	if nc.cache != nil && nc.cache.Get(cacheKey, &cached) {
		return cached, nil
	}

	if err := nc.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate wait: %w", err)
	}

	var result []models.NewsHeadline
	var err error
	if nc.apiKey != "" {
		result, err = nc.fetchFinnhub(ctx, symbol)
	} else {
		result, err = nc.scrapeGoogleNews(ctx, symbol)
	}
	if err != nil {
		// Keyed fetch failed; the scrape is still worth a try.
		if nc.apiKey != "" {
			nc.log.Warn().Err(err).Str("symbol", symbol).Msg("finnhub failed, falling back to scrape")
			result, err = nc.scrapeGoogleNews(ctx, symbol)
		}
		if err != nil {
			return nil, err
		}
	}
	if len(result) == 0 {
		return nil, unavailable(symbol, "news")
	}

	if nc.cache != nil {
		_ = nc.cache.Set(cacheKey, result, 2*time.Hour)
	}
	return result, nil
}

func (nc *NewsClient) fetchFinnhub(ctx context.Context, symbol string) ([]models.NewsHeadline, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -14)

	var result []models.NewsHeadline
	err := WithRetry(ctx, nc.retry, func() error {
		return nc.breaker.Call(func() error {
			resp, err := nc.client.R().
				SetContext(ctx).
				SetQueryParams(map[string]string{
					"symbol": symbol,
					"from":   from.Format("2006-01-02"),
					"to":     to.Format("2006-01-02"),
					"token":  nc.apiKey,
				}).
				Get("https://finnhub.io/api/v1/company-news")
			if err != nil {
				return fmt.Errorf("fetch news for %s: %w", symbol, err)
			}
			if resp.StatusCode() == 429 {
				return fmt.Errorf("finnhub throttled: %w", ErrRateLimited)
			}
			if resp.StatusCode() != 200 {
				return fmt.Errorf("finnhub API error %d", resp.StatusCode())
			}

			var items []finnhubNews
			if err := json.Unmarshal(resp.Body(), &items); err != nil {
				return fmt.Errorf("decode finnhub news: %w", ErrParse)
			}

			result = make([]models.NewsHeadline, 0, len(items))
			for _, item := range items {
				result = append(result, models.NewsHeadline{
					Headline:    item.Headline,
					URL:         item.URL,
					Source:      item.Source,
					PublishedAt: time.Unix(item.DateTime, 0),
				})
			}
			return nil
		})
	})
	return result, err
}

func (nc *NewsClient) scrapeGoogleNews(ctx context.Context, symbol string) ([]models.NewsHeadline, error) {
	searchURL := fmt.Sprintf("https://news.google.com/rss/search?q=%s+stock&hl=en-US&gl=US&ceid=US:en",
		url.QueryEscape(symbol))

	var result []models.NewsHeadline
	err := WithRetry(ctx, nc.retry, func() error {
		resp, err := nc.client.R().SetContext(ctx).Get(searchURL)
		if err != nil {
			return fmt.Errorf("fetch google news: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("google news HTTP %d", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("parse news feed: %w", ErrParse)
		}

		result = result[:0]
		doc.Find("item").Each(func(_ int, s *goquery.Selection) {
			title := strings.TrimSpace(s.Find("title").First().Text())
			if title == "" {
				return
			}
			link := strings.TrimSpace(s.Find("link").First().Text())
			pubDate, _ := time.Parse(time.RFC1123, strings.TrimSpace(s.Find("pubDate").First().Text()))
			result = append(result, models.NewsHeadline{
				Headline:    title,
				URL:         link,
				Source:      strings.TrimSpace(s.Find("source").First().Text()),
				PublishedAt: pubDate,
			})
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	const maxHeadlines = 25
	if len(result) > maxHeadlines {
		result = result[:maxHeadlines]
	}
	return result, nil
}
