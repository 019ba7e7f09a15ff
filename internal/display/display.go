package display

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tickerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	buyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	holdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	sellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B"))
)

// Renderer writes a human-readable report to a terminal.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Render prints the full report: one block per ticker plus a stage
// confidence rundown.
func (r *Renderer) Render(report *models.Report) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, titleStyle.Render(fmt.Sprintf("Analysis run %s", report.RunID)))
	if report.Degraded {
		fmt.Fprintln(r.out, warnStyle.Render("⚠ degraded run: some stages finished below confidence threshold"))
	}
	fmt.Fprintln(r.out)

	for _, tr := range report.Tickers {
		r.renderTicker(tr)
	}
}

func (r *Renderer) renderTicker(tr models.TickerReport) {
	d := tr.Decision

	fmt.Fprintln(r.out, tickerStyle.Render(tr.Ticker))
	fmt.Fprintf(r.out, "  Action:   %s\n", actionStyle(d.Action).Render(string(d.Action)))
	fmt.Fprintf(r.out, "  Score:    %.3f (composite %.3f%s)\n",
		d.Score, d.CompositeScore, adjustedNote(d))
	fmt.Fprintf(r.out, "  Grade:    %s  %s\n", d.Grade, stars(d.Stars))
	fmt.Fprintf(r.out, "  Expected: %+.1f%% short / %+.1f%% long\n",
		d.ExpectedReturnShort, d.ExpectedReturnLong)

	if len(d.ReasonsFor) > 0 {
		fmt.Fprintln(r.out, "  For:")
		for _, reason := range d.ReasonsFor {
			fmt.Fprintf(r.out, "    + %s\n", reason)
		}
	}
	if len(d.ReasonsAgainst) > 0 {
		fmt.Fprintln(r.out, "  Against:")
		for _, reason := range d.ReasonsAgainst {
			fmt.Fprintf(r.out, "    - %s\n", reason)
		}
	}

	fmt.Fprintln(r.out, "  Stages:")
	for _, name := range sortedStageNames(tr.Stages) {
		res := tr.Stages[name]
		line := fmt.Sprintf("    %-20s confidence %.2f", consts.DisplayName(name), res.Confidence)
		if res.Widened {
			line += "  (widened)"
		}
		if res.Failure != "" {
			line += "  failed"
		}
		if res.Confidence < 0.7 {
			fmt.Fprintln(r.out, dimStyle.Render(line))
		} else {
			fmt.Fprintln(r.out, line)
		}
	}
	fmt.Fprintln(r.out)
}

func actionStyle(action models.Action) lipgloss.Style {
	switch action {
	case models.ActionStrongBuy, models.ActionBuy:
		return buyStyle
	case models.ActionHold:
		return holdStyle
	default:
		return sellStyle
	}
}

func adjustedNote(d models.Decision) string {
	if d.ModelAdjusted {
		return ", model-adjusted"
	}
	return ""
}

func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

func sortedStageNames(results map[string]models.StageResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
