package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfold/deepstock/internal/config"
	"github.com/quantfold/deepstock/internal/display"
	"github.com/quantfold/deepstock/internal/models"
)

var analyzeFlags struct {
	tickers   []string
	market    string
	shortDays int
	longDays  int
	export    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline for one or more tickers",
	Example: `  deepstock analyze -t AAPL
  deepstock analyze -t AAPL -t MSFT -t NVDA --market US --export`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if len(analyzeFlags.tickers) == 0 {
			return runInteractive(cmd.Context(), cfg)
		}

		req := models.AnalysisRequest{
			Tickers:          analyzeFlags.tickers,
			Market:           analyzeFlags.market,
			ShortHorizonDays: analyzeFlags.shortDays,
			LongHorizonDays:  analyzeFlags.longDays,
		}
		return runAnalysis(cmd.Context(), cfg, req, analyzeFlags.export)
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVarP(&analyzeFlags.tickers, "ticker", "t", nil,
		"ticker to analyze (repeatable, up to 5)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.market, "market", "US",
		"market the tickers trade in (US, HK, CN)")
	analyzeCmd.Flags().IntVar(&analyzeFlags.shortDays, "short", 30,
		"short horizon in days")
	analyzeCmd.Flags().IntVar(&analyzeFlags.longDays, "long", 365,
		"long horizon in days")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.export, "export", false,
		"write markdown reports under the results directory")
}

func runAnalysis(ctx context.Context, cfg *config.Config, req models.AnalysisRequest, export bool) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Orchestrator.Run(ctx, req)
	if err != nil {
		return err
	}

	display.NewRenderer(os.Stdout).Render(report)

	if export {
		paths, err := display.ExportMarkdown(report, cfg.ResultsDir)
		if err != nil {
			return fmt.Errorf("export reports: %w", err)
		}
		for _, path := range paths {
			fmt.Println("wrote", path)
		}
	}
	return nil
}
