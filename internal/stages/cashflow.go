package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Cashflow scores earnings power and balance-sheet signals from the
// descriptive data: positive earnings yield, book value backing, and
// periodic-report coverage in the filings feed.
type Cashflow struct {
	log zerolog.Logger
}

func NewCashflow(logger zerolog.Logger) *Cashflow {
	return &Cashflow{log: logger.With().Str("stage", consts.StageCashflow).Logger()}
}

func (s *Cashflow) Name() string { return consts.StageCashflow }

func (s *Cashflow) DependsOn() []string {
	return []string{
		consts.StageTechnical,
		consts.StageAnalystConsensus,
		consts.StageNewsSentiment,
		consts.StageVideoSentiment,
	}
}

func (s *Cashflow) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if data.Info == nil {
			return 0, "", fmt.Errorf("no descriptive data")
		}

		var signals []float64

		price, havePrice := infoFloat(data.Info, "price")
		if eps, ok := infoFloat(data.Info, "eps_trailing"); ok && havePrice && price > 0 {
			// Earnings yield: 0% is poor, 10%+ is strong.
			yield := eps / price
			signals = append(signals, bandScore(yield, 0, 0.10, false))
		}
		if book, ok := infoFloat(data.Info, "book_value"); ok && havePrice && price > 0 && book > 0 {
			// Tangible backing per dollar of price.
			signals = append(signals, bandScore(book/price, 0, 1, false))
		}
		if periodic := periodicFilings(data.Filings); periodic > 0 {
			signals = append(signals, 0.7)
		} else if len(data.Filings) > 0 {
			signals = append(signals, 0.5)
		}

		if len(signals) == 0 {
			return 0, "", fmt.Errorf("no cash-flow proxies present")
		}
		score := mean(signals)
		return score, fmt.Sprintf("%d proxies, score %.2f", len(signals), score), nil
	})
}

// periodicFilings counts annual and quarterly reports.
func periodicFilings(filings []models.Filing) int {
	count := 0
	for _, f := range filings {
		switch f.Type {
		case "10-K", "10-Q", "20-F", "40-F":
			count++
		}
	}
	return count
}
