package dataflows

import (
	"context"
	"strings"
	"time"

	"github.com/quantfold/deepstock/internal/models"
)

// MarketDataProvider serves price history and descriptive company data.
type MarketDataProvider interface {
	FetchSeries(ctx context.Context, ticker string, period time.Duration) ([]models.Candle, error)
	FetchInfo(ctx context.Context, ticker string) (map[string]any, error)
}

// NewsProvider serves recent headlines for a ticker.
type NewsProvider interface {
	FetchHeadlines(ctx context.Context, ticker string) ([]models.NewsHeadline, error)
}

// VideoProvider serves video search results for a ticker.
type VideoProvider interface {
	FetchVideos(ctx context.Context, ticker string) ([]models.VideoItem, error)
}

// FilingsProvider serves structured regulatory filings.
type FilingsProvider interface {
	FetchFilings(ctx context.Context, ticker, market string) ([]models.Filing, error)
}

// Cache is a best-effort key/value store with per-entry TTL. A miss is
// reported through the bool, not an error.
type Cache interface {
	Get(key string, out any) bool
	Set(key string, value any, ttl time.Duration) error
}

// Providers bundles every collaborator the stages consume. Any field
// may be nil; stages treat a nil provider as a permanently unavailable
// source and degrade.
type Providers struct {
	MarketData MarketDataProvider
	News       NewsProvider
	Video      VideoProvider
	Filings    FilingsProvider
}

// NormalizeSymbol converts a ticker to its canonical upper-case form.
func NormalizeSymbol(symbol string) string {
	return strings.TrimSpace(strings.ToUpper(symbol))
}
