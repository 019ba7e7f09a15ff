package dataflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	lpquote "github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/internal/models"
)

// LongportConfig carries the Longport OpenAPI credentials.
type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// LongportClient serves market data for HK/CN listings through the
// Longport OpenAPI quote context.
type LongportClient struct {
	quoteCtx *lpquote.QuoteContext
	log      zerolog.Logger
}

var _ MarketDataProvider = (*LongportClient)(nil)

func NewLongportClient(cfg LongportConfig, logger zerolog.Logger) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := lpquote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		log:      logger.With().Str("component", "longport").Logger(),
	}, nil
}

// Close releases the underlying quote context.
func (lc *LongportClient) Close() {
	if lc.quoteCtx != nil {
		lc.quoteCtx.Close()
	}
}

// FetchSeries returns daily candles covering the given period.
func (lc *LongportClient) FetchSeries(ctx context.Context, ticker string, period time.Duration) ([]models.Candle, error) {
	if lc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	symbol := NormalizeSymbol(ticker)
	count := int(period.Hours()/24) + 1
	if count < 2 {
		count = 2
	}

	sticks, err := lc.quoteCtx.Candlesticks(ctx, symbol, lpquote.PeriodDay, int32(count), lpquote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("candlesticks %s: %w", symbol, err)
	}
	if len(sticks) == 0 {
		return nil, unavailable(symbol, "longport candlesticks")
	}

	result := make([]models.Candle, 0, len(sticks))
	for _, stick := range sticks {
		open, _ := stick.Open.Float64()
		high, _ := stick.High.Float64()
		low, _ := stick.Low.Float64()
		closePx, _ := stick.Close.Float64()
		result = append(result, models.Candle{
			Symbol:    symbol,
			Date:      time.Unix(stick.Timestamp, 0),
			Open:      decimalFromFloat(open),
			High:      decimalFromFloat(high),
			Low:       decimalFromFloat(low),
			Close:     decimalFromFloat(closePx),
			AdjClose:  decimalFromFloat(closePx),
			Volume:    stick.Volume,
			Timestamp: time.Now(),
		})
	}
	return result, nil
}

// FetchInfo returns static descriptive data for a symbol.
func (lc *LongportClient) FetchInfo(ctx context.Context, ticker string) (map[string]any, error) {
	if lc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	symbol := NormalizeSymbol(ticker)

	infos, err := lc.quoteCtx.StaticInfo(ctx, []string{symbol})
	if err != nil {
		return nil, fmt.Errorf("static info %s: %w", symbol, err)
	}
	if len(infos) == 0 || infos[0] == nil {
		return nil, unavailable(symbol, "longport static info")
	}

	info := infos[0]
	lc.log.Debug().Str("symbol", symbol).Msg("static info fetched")

	return map[string]any{
		"symbol":       symbol,
		"company_name": info.NameEn,
		"name_local":   info.NameCn,
		"exchange":     info.Exchange,
		"currency":     info.Currency,
		"lot_size":     info.LotSize,
		"fetched_at":   time.Now().Format(time.RFC3339),
	}, nil
}
