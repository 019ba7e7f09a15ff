package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewsHeadline is one article reference returned by a news provider.
type NewsHeadline struct {
	Headline    string    `json:"headline"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// VideoItem is one video result with the provider's credibility estimate
// for the channel, in [0,1].
type VideoItem struct {
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Channel            string  `json:"channel"`
	ChannelCredibility float64 `json:"channel_credibility"`
}

// Filing is one structured regulatory-filing record.
type Filing struct {
	Symbol  string            `json:"symbol"`
	Market  string            `json:"market"`
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	FiledAt time.Time         `json:"filed_at"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// TickerData bundles everything the data-collection stage fetched for
// one ticker. FetchError is set (and the rest left empty) when every
// source failed for the ticker.
type TickerData struct {
	Symbol     string         `json:"symbol"`
	Info       map[string]any `json:"info,omitempty"`
	Series     []Candle       `json:"series,omitempty"`
	Headlines  []NewsHeadline `json:"headlines,omitempty"`
	Videos     []VideoItem    `json:"videos,omitempty"`
	Filings    []Filing       `json:"filings,omitempty"`
	FetchError string         `json:"fetch_error,omitempty"`
}

// Usable reports whether downstream stages have anything to work with.
func (d *TickerData) Usable() bool {
	return d != nil && d.FetchError == "" && (len(d.Series) > 0 || d.Info != nil)
}

// Closes returns the close series as float64 for indicator math.
func (d *TickerData) Closes() []float64 {
	out := make([]float64, len(d.Series))
	for i, c := range d.Series {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}
