package cli

import (
	"context"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/quantfold/deepstock/internal/config"
	"github.com/quantfold/deepstock/internal/models"
)

// runInteractive walks the user through a request with prompts, then
// hands off to the same path the flag-driven command uses.
func runInteractive(ctx context.Context, cfg *config.Config) error {
	var answers struct {
		Tickers string
		Market  string
		Horizon string
		Export  bool
	}

	questions := []*survey.Question{
		{
			Name: "tickers",
			Prompt: &survey.Input{
				Message: "Tickers (comma separated, up to 5):",
				Default: "AAPL",
			},
			Validate: survey.Required,
		},
		{
			Name: "market",
			Prompt: &survey.Select{
				Message: "Market:",
				Options: []string{"US", "HK", "CN"},
				Default: "US",
			},
		},
		{
			Name: "horizon",
			Prompt: &survey.Select{
				Message: "Horizon:",
				Options: []string{"30/365 (standard)", "7/90 (short term)", "90/730 (long term)"},
				Default: "30/365 (standard)",
			},
		},
		{
			Name:   "export",
			Prompt: &survey.Confirm{Message: "Export markdown reports?", Default: true},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	var tickers []string
	for _, t := range strings.Split(answers.Tickers, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}

	shortDays, longDays := 30, 365
	switch {
	case strings.HasPrefix(answers.Horizon, "7/"):
		shortDays, longDays = 7, 90
	case strings.HasPrefix(answers.Horizon, "90/"):
		shortDays, longDays = 90, 730
	}

	req := models.AnalysisRequest{
		Tickers:          tickers,
		Market:           answers.Market,
		ShortHorizonDays: shortDays,
		LongHorizonDays:  longDays,
	}
	return runAnalysis(ctx, cfg, req, answers.Export)
}
