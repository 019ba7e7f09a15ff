package display

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// ExportMarkdown writes one markdown file per ticker under
// resultsDir/<ticker>/ and returns the written paths.
func ExportMarkdown(report *models.Report, resultsDir string) ([]string, error) {
	var paths []string
	for _, tr := range report.Tickers {
		dir := filepath.Join(resultsDir, tr.Ticker)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return paths, fmt.Errorf("create results dir: %w", err)
		}

		name := fmt.Sprintf("%s_%s.md",
			report.GeneratedAt.Format("2006-01-02"), shortID(report.RunID))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(renderMarkdown(report, tr)), 0644); err != nil {
			return paths, fmt.Errorf("write report: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func renderMarkdown(report *models.Report, tr models.TickerReport) string {
	var b strings.Builder
	d := tr.Decision

	fmt.Fprintf(&b, "# %s: %s\n\n", tr.Ticker, d.Action)
	fmt.Fprintf(&b, "Run `%s`, generated %s\n\n",
		report.RunID, report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if report.Degraded {
		b.WriteString("> Degraded run: some stages finished below the confidence threshold.\n\n")
	}

	b.WriteString("## Decision\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Action | %s |\n", d.Action)
	fmt.Fprintf(&b, "| Score | %.3f |\n", d.Score)
	fmt.Fprintf(&b, "| Composite | %.3f |\n", d.CompositeScore)
	fmt.Fprintf(&b, "| Grade | %s |\n", d.Grade)
	fmt.Fprintf(&b, "| Stars | %d/5 |\n", d.Stars)
	fmt.Fprintf(&b, "| Expected return (short) | %+.1f%% |\n", d.ExpectedReturnShort)
	fmt.Fprintf(&b, "| Expected return (long) | %+.1f%% |\n", d.ExpectedReturnLong)
	fmt.Fprintf(&b, "| Model adjusted | %v |\n\n", d.ModelAdjusted)

	if len(d.ReasonsFor) > 0 {
		b.WriteString("### For\n\n")
		for _, reason := range d.ReasonsFor {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}
	if len(d.ReasonsAgainst) > 0 {
		b.WriteString("### Against\n\n")
		for _, reason := range d.ReasonsAgainst {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Stages\n\n")
	b.WriteString("| Stage | Confidence | Summary |\n|---|---|---|\n")
	for _, name := range sortedStageNames(tr.Stages) {
		res := tr.Stages[name]
		summary := res.Summary
		if res.Failure != "" {
			summary = "failed: " + res.Failure
		}
		fmt.Fprintf(&b, "| %s | %.2f | %s |\n",
			consts.DisplayName(name), res.Confidence, escapePipes(summary))
	}
	return b.String()
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
