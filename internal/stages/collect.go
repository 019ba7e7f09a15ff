package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/dataflows"
	"github.com/quantfold/deepstock/internal/models"
)

// DataCollection fans out to every configured provider and fills
// RawData for each requested ticker. It is the graph's only root node.
type DataCollection struct {
	providers dataflows.Providers
	lookback  time.Duration
	log       zerolog.Logger
}

func NewDataCollection(providers dataflows.Providers, logger zerolog.Logger) *DataCollection {
	return &DataCollection{
		providers: providers,
		lookback:  365 * 24 * time.Hour,
		log:       logger.With().Str("stage", consts.StageDataCollection).Logger(),
	}
}

func (s *DataCollection) Name() string        { return consts.StageDataCollection }
func (s *DataCollection) DependsOn() []string { return nil }

func (s *DataCollection) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()

	lookback := s.lookback
	if info.Widened {
		// Double the window on the re-run so thinly traded tickers
		// still produce a usable series.
		lookback *= 2
	}

	collected := make([]*models.TickerData, len(snap.Tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(snap.Tickers))
	for i, ticker := range snap.Tickers {
		g.Go(func() error {
			collected[i] = s.collectTicker(gctx, ticker, snap.Request.Market, lookback)
			return nil
		})
	}
	_ = g.Wait()

	patch := models.Patch{RawData: make(map[string]*models.TickerData, len(collected))}
	succeeded := 0
	for _, data := range collected {
		patch.RawData[data.Symbol] = data
		if data.Usable() {
			succeeded++
		}
	}

	confidence := coverageConfidence(succeeded, len(snap.Tickers))
	s.log.Info().
		Int("succeeded", succeeded).
		Int("requested", len(snap.Tickers)).
		Bool("widened", info.Widened).
		Msg("collection done")

	out := result(s.Name(), started, info, models.StageResult{
		Summary:    fmt.Sprintf("collected data for %d of %d tickers", succeeded, len(snap.Tickers)),
		Confidence: confidence,
		Details: map[string]any{
			"succeeded": succeeded,
			"requested": len(snap.Tickers),
			"lookback":  lookback.String(),
		},
	})
	out.RawData = patch.RawData
	return out, nil
}

// collectTicker gathers every source for one ticker. Market data is
// required; news, video, and filings are best-effort extras.
func (s *DataCollection) collectTicker(ctx context.Context, ticker, market string, lookback time.Duration) *models.TickerData {
	data := &models.TickerData{Symbol: ticker}

	provider := s.providers.MarketData
	if provider == nil {
		data.FetchError = "no market data provider configured"
		return data
	}

	series, seriesErr := provider.FetchSeries(ctx, ticker, lookback)
	if seriesErr == nil {
		data.Series = series
	}
	inf, infoErr := provider.FetchInfo(ctx, ticker)
	if infoErr == nil {
		data.Info = inf
	}
	if seriesErr != nil && infoErr != nil {
		data.FetchError = fmt.Sprintf("series: %v; info: %v", seriesErr, infoErr)
		s.log.Warn().Str("ticker", ticker).Str("error", data.FetchError).Msg("ticker unusable")
		return data
	}

	if s.providers.News != nil {
		if headlines, err := s.providers.News.FetchHeadlines(ctx, ticker); err == nil {
			data.Headlines = headlines
		} else {
			s.log.Debug().Err(err).Str("ticker", ticker).Msg("no headlines")
		}
	}
	if s.providers.Video != nil {
		if videos, err := s.providers.Video.FetchVideos(ctx, ticker); err == nil {
			data.Videos = videos
		} else {
			s.log.Debug().Err(err).Str("ticker", ticker).Msg("no videos")
		}
	}
	if s.providers.Filings != nil {
		if filings, err := s.providers.Filings.FetchFilings(ctx, ticker, market); err == nil {
			data.Filings = filings
		} else {
			s.log.Debug().Err(err).Str("ticker", ticker).Msg("no filings")
		}
	}
	return data
}
