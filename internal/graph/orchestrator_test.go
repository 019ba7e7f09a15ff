package graph

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/internal/config"
	"github.com/quantfold/deepstock/internal/models"
	"github.com/quantfold/deepstock/internal/stages"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxConcurrentStages = 5
	cfg.ConfidenceThreshold = 0.7
	cfg.MaxStageRetries = 1
	cfg.PipelineTimeout = 5 * time.Second
	cfg.CollectTimeout = time.Second
	cfg.StageTimeout = 100 * time.Millisecond
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, stageList []stages.Stage) *Orchestrator {
	t.Helper()
	topo, err := NewTopology(stageList)
	require.NoError(t, err)
	return NewOrchestrator(cfg, topo, zerolog.Nop())
}

func request(tickers ...string) models.AnalysisRequest {
	return models.AnalysisRequest{Tickers: tickers}
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), []stages.Stage{fixedConfidence("only", 0.9)})

	_, err := o.Run(context.Background(), models.AnalysisRequest{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = o.Run(context.Background(), request("AAPL", "AAPL"))
	require.ErrorAs(t, err, &verr)
}

func TestRunLowConfidenceRetriedExactlyOnce(t *testing.T) {
	var runs atomic.Int32
	stubborn := &stubStage{
		name: "stubborn",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			runs.Add(1)
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"stubborn": {Stage: "stubborn", Confidence: 0.4, Widened: info.Widened},
				},
			}, nil
		},
	}

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{stubborn})
	report, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)

	assert.Equal(t, int32(2), runs.Load(), "initial run plus one widened re-run")
	assert.True(t, report.Degraded)
}

func TestRunHighConfidenceNotRetried(t *testing.T) {
	var runs atomic.Int32
	solid := &stubStage{
		name: "solid",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			runs.Add(1)
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"solid": {Stage: "solid", Confidence: 0.95},
				},
			}, nil
		},
	}

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{solid})
	_, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunWidenedRerunSeenByDependents(t *testing.T) {
	attempt := 0
	flaky := &stubStage{
		name: "flaky",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			attempt++
			confidence := 0.3
			if info.Widened {
				confidence = 0.9
			}
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"flaky": {Stage: "flaky", Confidence: confidence, Widened: info.Widened},
				},
			}, nil
		},
	}

	var seen float64
	dependent := &stubStage{
		name: "dependent",
		deps: []string{"flaky"},
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			seen = snap.Confidences["flaky"]
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"dependent": {Stage: "dependent", Confidence: 0.9},
				},
			}, nil
		},
	}

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{flaky, dependent})
	report, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)

	require.NotNil(t, report)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, 0.9, seen, "dependent must observe the post-retry confidence")
}

func TestRunStageErrorIsIsolated(t *testing.T) {
	failing := &stubStage{
		name: "failing",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			return models.Patch{}, assert.AnError
		},
	}

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{failing})
	report, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err, "stage failures never reach the caller")
	require.NotNil(t, report)
	assert.True(t, report.Degraded)
}

func TestRunPanicIsIsolated(t *testing.T) {
	var runs atomic.Int32
	panicking := &stubStage{
		name: "panicking",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			runs.Add(1)
			panic("stage bug")
		},
	}
	calm := fixedConfidence("calm", 0.9)

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{panicking, calm})
	report, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)
	require.NotNil(t, report)
	// Initial run plus the widened retry both panic; both are caught.
	assert.Equal(t, int32(2), runs.Load())
}

func TestRunStageTimeoutScoresZero(t *testing.T) {
	slow := &stubStage{
		name: "slow",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			<-ctx.Done()
			return models.Patch{}, ctx.Err()
		},
	}

	cfg := testConfig()
	cfg.StageTimeout = 20 * time.Millisecond

	started := time.Now()
	o := newTestOrchestrator(t, cfg, []stages.Stage{slow})
	report, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)
	assert.True(t, report.Degraded)
	assert.Less(t, time.Since(started), time.Second, "timeout must not stall the wave")
}

func TestRunPartialDataDegradesDownstreamPerTicker(t *testing.T) {
	tickers := []string{"AAPL", "MSFT", "GOOG", "AMZN", "META"}
	collect := &stubStage{
		name: "collect",
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			raw := make(map[string]*models.TickerData)
			succeeded := 0
			for i, ticker := range snap.Tickers {
				data := &models.TickerData{Symbol: ticker}
				if i < 3 {
					data.Info = map[string]any{"price": 100.0}
					succeeded++
				} else {
					data.FetchError = "source down"
				}
				raw[ticker] = data
			}
			return models.Patch{
				RawData: raw,
				Analysis: map[string]models.StageResult{
					"collect": {
						Stage:      "collect",
						Confidence: float64(succeeded) / float64(len(snap.Tickers)),
					},
				},
			}, nil
		},
	}

	downstream := &stubStage{
		name: "downstream",
		deps: []string{"collect"},
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			perTicker := make(map[string]float64)
			covered := 0
			for _, ticker := range snap.Tickers {
				if snap.Data(ticker).Usable() {
					perTicker[ticker] = 0.9
					covered++
				} else {
					perTicker[ticker] = 0
				}
			}
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"downstream": {
						Stage:      "downstream",
						Confidence: 0.5,
						PerTicker:  perTicker,
					},
				},
			}, nil
		},
	}

	cfg := testConfig()
	cfg.MaxStageRetries = 0
	o := newTestOrchestrator(t, cfg, []stages.Stage{collect, downstream})
	report, err := o.Run(context.Background(), request(tickers...))
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.Degraded)

	require.Contains(t, report.Tickers[0].Stages, "collect")
	assert.InDelta(t, 0.6, report.Tickers[0].Stages["collect"].Confidence, 1e-9)

	perTicker := report.Tickers[0].Stages["downstream"].PerTicker
	assert.Equal(t, 0.0, perTicker["AMZN"])
	assert.Equal(t, 0.0, perTicker["META"])
	assert.Equal(t, 0.9, perTicker["AAPL"])
}

func TestRunIdempotentWithDeterministicStages(t *testing.T) {
	synthesize := &stubStage{
		name: "synthesize",
		deps: []string{"score"},
		run: func(ctx context.Context, snap models.Snapshot, info stages.RunInfo) (models.Patch, error) {
			score := snap.Analysis["score"].Confidence
			report := &models.Report{
				RunID:   snap.RunID,
				Request: snap.Request,
				Tickers: []models.TickerReport{{
					Ticker:   snap.Tickers[0],
					Decision: models.Decision{Ticker: snap.Tickers[0], Score: score, Action: models.ActionBuy},
				}},
			}
			return models.Patch{
				Analysis: map[string]models.StageResult{
					"synthesize": {Stage: "synthesize", Confidence: 0.9},
				},
				FinalOutput: report,
			}, nil
		},
	}

	o := newTestOrchestrator(t, testConfig(), []stages.Stage{
		fixedConfidence("score", 0.8),
		synthesize,
	})

	first, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)
	second, err := o.Run(context.Background(), request("AAPL"))
	require.NoError(t, err)

	assert.Equal(t, first.Tickers[0].Decision, second.Tickers[0].Decision)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunFallbackReportWhenSynthesisMissing(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), []stages.Stage{fixedConfidence("lonely", 0.9)})

	report, err := o.Run(context.Background(), request("AAPL", "MSFT"))
	require.NoError(t, err)
	require.Len(t, report.Tickers, 2)
	assert.True(t, report.Degraded)
	assert.Equal(t, models.ActionHold, report.Tickers[0].Decision.Action)
}
