package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/internal/config"
	"github.com/quantfold/deepstock/internal/dataflows"
	"github.com/quantfold/deepstock/internal/graph"
	"github.com/quantfold/deepstock/internal/llm"
	"github.com/quantfold/deepstock/internal/stages"
	"github.com/quantfold/deepstock/internal/synthesis"
)

// App wires configuration, providers, the language model, and the task
// graph into a runnable engine.
type App struct {
	Config       *config.Config
	Orchestrator *graph.Orchestrator
	Log          zerolog.Logger

	longport *dataflows.LongportClient
}

// NewApp builds the engine. Configuration and topology problems are the
// only fatal startup errors.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	var cache dataflows.Cache
	if cfg.CacheEnabled {
		cache = dataflows.NewFileCache(cfg.DataCacheDir, true)
	}

	app := &App{Config: cfg, Log: logger}

	providers := dataflows.Providers{
		MarketData: dataflows.NewYahooClient(cache, logger),
		News:       dataflows.NewNewsClient(cfg.FinnhubAPIKey, cache, logger),
		Filings:    dataflows.NewFilingsClient(cfg.FilingsBaseURL, cache, logger),
	}
	if cfg.VideoAPIKey != "" {
		providers.Video = dataflows.NewVideoClient(cfg.VideoBaseURL, cfg.VideoAPIKey, cache, logger)
	}
	if cfg.LongportAppKey != "" {
		lp, err := dataflows.NewLongportClient(dataflows.LongportConfig{
			AppKey:      cfg.LongportAppKey,
			AppSecret:   cfg.LongportAppSecret,
			AccessToken: cfg.LongportAccessToken,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("longport unavailable, staying on yahoo")
		} else {
			app.longport = lp
			providers.MarketData = lp
		}
	}

	model, err := llm.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	synth := synthesis.NewSynthesizer(model, logger)

	topo, err := graph.NewTopology(stages.Registry(providers, synth, logger))
	if err != nil {
		return nil, fmt.Errorf("build topology: %w", err)
	}

	app.Orchestrator = graph.NewOrchestrator(cfg, topo, logger)
	return app, nil
}

// Close releases provider connections.
func (a *App) Close() {
	if a.longport != nil {
		a.longport.Close()
	}
}

func newLogger(level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(logLevel).With().Timestamp().Logger()
}
