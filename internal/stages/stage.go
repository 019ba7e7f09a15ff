package stages

import (
	"context"
	"strings"
	"time"

	"github.com/quantfold/deepstock/internal/models"
)

// RunInfo tells a stage which attempt this is. Widened is set on the
// confidence-gated re-run so the stage can relax its filters, widen its
// lookback window, or try alternate sources.
type RunInfo struct {
	Attempt int
	Widened bool
}

// Stage is one analysis unit in the task graph. Run receives a read-only
// snapshot of the accumulated state and hands back a patch; it must not
// mutate anything reachable through the snapshot.
type Stage interface {
	Name() string
	DependsOn() []string
	Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error)
}

// result builds the patch for a stage that produced a single analysis
// entry. Most stages end with this.
func result(stage string, started time.Time, info RunInfo, res models.StageResult) models.Patch {
	res.Stage = stage
	res.Elapsed = time.Since(started)
	res.Widened = info.Widened
	res.Confidence = clampConfidence(res.Confidence)
	return models.Patch{
		Analysis: map[string]models.StageResult{stage: res},
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// usableTickers splits the requested tickers into those with usable
// collected data and those without. Stages score the missing ones 0.0
// rather than failing the whole stage.
func usableTickers(snap models.Snapshot) (usable, missing []string) {
	for _, ticker := range snap.Tickers {
		if data := snap.Data(ticker); data != nil && data.Usable() {
			usable = append(usable, ticker)
		} else {
			missing = append(missing, ticker)
		}
	}
	return usable, missing
}

// coverageConfidence is the data-collection confidence policy: the
// share of requested tickers the stage actually covered. 3 of 5
// tickers yields 0.6; nothing usable yields 0.0.
func coverageConfidence(covered, total int) float64 {
	if total == 0 || covered <= 0 {
		return 0
	}
	return clampConfidence(float64(covered) / float64(total))
}

// presenceConfidence is the metric-derived stage policy: 0.9 when every
// required input was present, 0.5 when only some were, 0.0 on total
// absence.
func presenceConfidence(covered, total int) float64 {
	switch {
	case total == 0 || covered <= 0:
		return 0
	case covered == total:
		return 0.9
	default:
		return 0.5
	}
}

// tickerEval scores one ticker from its collected data. The returned
// note becomes part of the stage summary.
type tickerEval func(ticker string, data *models.TickerData) (score float64, note string, err error)

// evalTickers is the shared harness for per-ticker scoring stages. A
// ticker without usable data, or whose evaluation fails, is recorded at
// confidence 0.0 rather than failing the stage.
func evalTickers(stage string, started time.Time, info RunInfo, snap models.Snapshot, eval tickerEval) (models.Patch, error) {
	scores := make(map[string]float64, len(snap.Tickers))
	perTicker := make(map[string]float64, len(snap.Tickers))
	notes := make([]string, 0, len(snap.Tickers))

	covered := 0
	for _, ticker := range snap.Tickers {
		data := snap.Data(ticker)
		if !data.Usable() {
			perTicker[ticker] = 0
			continue
		}
		score, note, err := eval(ticker, data)
		if err != nil {
			perTicker[ticker] = 0
			notes = append(notes, ticker+": "+err.Error())
			continue
		}
		scores[ticker] = clampConfidence(score)
		perTicker[ticker] = 0.9
		covered++
		if note != "" {
			notes = append(notes, ticker+": "+note)
		}
	}

	return result(stage, started, info, models.StageResult{
		Summary:    strings.Join(notes, "; "),
		Confidence: presenceConfidence(covered, len(snap.Tickers)),
		PerTicker:  perTicker,
		Details: map[string]any{
			"scores": scores,
		},
	}), nil
}
