package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/config"
	"github.com/quantfold/deepstock/internal/models"
	"github.com/quantfold/deepstock/internal/stages"
)

// Orchestrator executes the task graph wave by wave over a fresh
// SharedState per request. Stages inside a wave run concurrently;
// wave N+1 starts only after every stage in wave N has merged.
type Orchestrator struct {
	cfg  *config.Config
	topo *Topology
	log  zerolog.Logger
}

func NewOrchestrator(cfg *config.Config, topo *Topology, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:  cfg,
		topo: topo,
		log:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes one analysis request end to end. Only request validation
// problems and fatal configuration problems surface as errors; stage
// failures degrade the report instead.
func (o *Orchestrator) Run(ctx context.Context, req models.AnalysisRequest) (*models.Report, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.PipelineTimeout)
	defer cancel()

	state := models.NewSharedState(req)
	merge := newMerger(state, o.log)
	runLog := o.log.With().Str("run_id", state.RunID).Logger()
	runLog.Info().
		Strs("tickers", state.Tickers).
		Int("waves", len(o.topo.Waves())).
		Msg("run started")

	for i, wave := range o.topo.Waves() {
		waveStart := time.Now()
		results := o.runWave(ctx, wave, state.Snapshot(), stages.RunInfo{})
		for _, r := range results {
			merge.apply(r.node.stage.Name(), r.node.priority, r.patch)
		}

		o.retryLowConfidence(ctx, wave, state, merge)

		runLog.Debug().
			Int("wave", i).
			Int("stages", len(wave)).
			Dur("elapsed", time.Since(waveStart)).
			Msg("wave complete")
	}

	report := state.FinalOutput
	if report == nil {
		runLog.Warn().Msg("no synthesized output, building degraded report")
		report = fallbackReport(state)
	}
	for _, c := range state.Confidences {
		if c < o.cfg.ConfidenceThreshold {
			report.Degraded = true
			break
		}
	}

	runLog.Info().
		Bool("degraded", report.Degraded).
		Dur("elapsed", time.Since(state.StartedAt)).
		Msg("run finished")
	return report, nil
}

type stageOutcome struct {
	node  *node
	patch models.Patch
}

// runWave executes the given nodes concurrently against one snapshot.
// Every node produces an outcome; failures are encoded in the patch,
// never returned as errors.
func (o *Orchestrator) runWave(ctx context.Context, wave []*node, snap models.Snapshot, info stages.RunInfo) []stageOutcome {
	outcomes := make([]stageOutcome, len(wave))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.MaxConcurrentStages)
	for i, n := range wave {
		g.Go(func() error {
			outcomes[i] = stageOutcome{
				node:  n,
				patch: o.executeStage(gctx, n.stage, snap, info),
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// executeStage runs one stage under its timeout with panic isolation.
// Any failure collapses to a caught result with confidence 0.0.
func (o *Orchestrator) executeStage(ctx context.Context, stage stages.Stage, snap models.Snapshot, info stages.RunInfo) (patch models.Patch) {
	name := stage.Name()
	started := time.Now()

	timeout := o.cfg.StageTimeout
	if name == consts.StageDataCollection {
		timeout = o.cfg.CollectTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Str("stage", name).
				Interface("panic", r).
				Msg("stage panicked")
			patch = caughtPatch(name, started, info, fmt.Errorf("panic: %v", r))
		}
	}()

	patch, err := stage.Run(stageCtx, snap, info)
	if err != nil {
		o.log.Warn().
			Err(err).
			Str("stage", name).
			Bool("widened", info.Widened).
			Dur("elapsed", time.Since(started)).
			Msg("stage failed")
		return caughtPatch(name, started, info, err)
	}

	// A stage that returns no entry for itself still gets one, so the
	// gate and the report always see every stage.
	if _, ok := patch.Analysis[name]; !ok {
		if patch.Analysis == nil {
			patch.Analysis = make(map[string]models.StageResult, 1)
		}
		patch.Analysis[name] = models.StageResult{
			Stage:      name,
			Summary:    "completed without analysis entry",
			Confidence: 0,
			Elapsed:    time.Since(started),
			Widened:    info.Widened,
		}
	}
	return patch
}

// retryLowConfidence re-runs the wave's below-threshold stages once in
// widened mode. Dependent waves only ever see the post-retry state.
func (o *Orchestrator) retryLowConfidence(ctx context.Context, wave []*node, state *models.SharedState, merge *merger) {
	var rerun []*node
	for _, n := range wave {
		name := n.stage.Name()
		if state.Confidences[name] >= o.cfg.ConfidenceThreshold {
			continue
		}
		if state.RetryCounts[name] >= o.cfg.MaxStageRetries {
			continue
		}
		state.RetryCounts[name]++
		rerun = append(rerun, n)
	}
	if len(rerun) == 0 {
		return
	}

	names := make([]string, len(rerun))
	for i, n := range rerun {
		names[i] = n.stage.Name()
	}
	o.log.Info().Strs("stages", names).Msg("widened re-run")

	results := o.runWave(ctx, rerun, state.Snapshot(), stages.RunInfo{Attempt: 1, Widened: true})
	for _, r := range results {
		name := r.node.stage.Name()
		// Keep the better attempt. A widened re-run that does worse
		// must not clobber a usable first result.
		if prev, ok := state.Analysis[name]; ok {
			if next, ok := r.patch.Analysis[name]; ok && next.Confidence < prev.Confidence {
				continue
			}
		}
		merge.apply(name, r.node.priority, r.patch)
	}
}

// caughtPatch is the uniform shape of a stage failure: empty update,
// confidence 0.0, the error recorded for the report.
func caughtPatch(stage string, started time.Time, info stages.RunInfo, err error) models.Patch {
	return models.Patch{
		Analysis: map[string]models.StageResult{
			stage: {
				Stage:      stage,
				Summary:    "stage failed",
				Confidence: 0,
				Elapsed:    time.Since(started),
				Widened:    info.Widened,
				Failure:    err.Error(),
			},
		},
	}
}

// fallbackReport covers the case where synthesis itself failed: every
// ticker gets a Hold with zeroed scores so callers still receive a
// structurally complete report.
func fallbackReport(state *models.SharedState) *models.Report {
	report := &models.Report{
		RunID:       state.RunID,
		GeneratedAt: time.Now(),
		Request:     state.Request,
		Degraded:    true,
	}
	for _, ticker := range state.Tickers {
		report.Tickers = append(report.Tickers, models.TickerReport{
			Ticker: ticker,
			Stages: state.Analysis,
			Decision: models.Decision{
				Ticker:         ticker,
				Action:         models.ActionHold,
				Grade:          "C",
				Stars:          2,
				ReasonsAgainst: []string{"synthesis unavailable, defaulting to hold"},
			},
		})
	}
	return report
}
