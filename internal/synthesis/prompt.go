package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// SystemPrompt frames the exchange. The response contract mirrors what
// ParseVerdict accepts, with no extra prose allowed.
const SystemPrompt = `You are an equity research assistant. You receive the condensed output of a multi-stage analysis pipeline for one ticker and reply with a verdict.

Reply with ONLY these labeled lines and nothing else:
SCORE: <number between 0 and 1>
ACTION: <Strong Buy|Buy|Hold|Sell|Strong Sell>
FOR: <one positive factor>
FOR: <one positive factor>
AGAINST: <one negative factor>
EXPECTED_RETURN: <expected return percentage over the requested horizon>

Use 2 to 3 FOR lines and 1 to 3 AGAINST lines. Do not add headers, markdown, or commentary.`

// BuildPrompt assembles the user prompt for one ticker: the request
// context, the deterministic composite with its pillar breakdown, and
// every completed stage's summary.
func BuildPrompt(snap models.Snapshot, ticker string, composite float64, breakdown map[string]float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticker: %s (market %s)\n", ticker, snap.Request.Market)
	fmt.Fprintf(&b, "Horizons: %d day short, %d day long\n",
		snap.Request.ShortHorizonDays, snap.Request.LongHorizonDays)
	fmt.Fprintf(&b, "Deterministic composite score: %.3f\n", composite)

	b.WriteString("Pillar scores:\n")
	for _, stage := range PillarNames() {
		score, ok := breakdown[stage]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  %s (weight %.0f%%): %.2f\n",
			consts.DisplayName(stage), pillarWeights[stage]*100, score)
	}

	b.WriteString("\nStage summaries:\n")
	for _, stage := range orderedStages(snap) {
		res := snap.Analysis[stage]
		if res.Failure != "" {
			fmt.Fprintf(&b, "[%s] unavailable\n", consts.DisplayName(stage))
			continue
		}
		summary := strings.TrimSpace(res.Summary)
		if summary == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] (confidence %.2f) %s\n",
			consts.DisplayName(stage), res.Confidence, summary)
	}

	b.WriteString("\nGive your verdict in the labeled-line format.")
	return b.String()
}

// orderedStages lists completed stages in a stable presentation order,
// pillars first, then the rest alphabetically.
func orderedStages(snap models.Snapshot) []string {
	seen := make(map[string]bool, len(snap.Analysis))
	var out []string
	for _, stage := range PillarNames() {
		if _, ok := snap.Analysis[stage]; ok {
			out = append(out, stage)
			seen[stage] = true
		}
	}
	var rest []string
	for stage := range snap.Analysis {
		if !seen[stage] {
			rest = append(rest, stage)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
