package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// SectorMacro reads the request basket as a market sample: breadth of
// positive momentum across the collected tickers stands in for the
// sector tide each name is swimming in.
type SectorMacro struct {
	log zerolog.Logger
}

func NewSectorMacro(logger zerolog.Logger) *SectorMacro {
	return &SectorMacro{log: logger.With().Str("stage", consts.StageSectorMacro).Logger()}
}

func (s *SectorMacro) Name() string        { return consts.StageSectorMacro }
func (s *SectorMacro) DependsOn() []string { return []string{consts.StageLeadership} }

func (s *SectorMacro) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()

	lookback := 30
	if info.Widened {
		lookback = 90
	}

	positive, sampled := 0, 0
	for _, ticker := range snap.Tickers {
		data := snap.Data(ticker)
		if !data.Usable() {
			continue
		}
		if m, ok := momentum(data.Closes(), lookback); ok {
			sampled++
			if m > 0 {
				positive++
			}
		}
	}

	breadth := 0.5
	if sampled > 0 {
		breadth = float64(positive) / float64(sampled)
	}

	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		own, ok := momentum(data.Closes(), lookback)
		if !ok {
			return breadth, fmt.Sprintf("basket breadth %.2f", breadth), nil
		}
		// Blend the basket tide with the ticker's own drift.
		ownScore := clampConfidence(0.5 + own*2)
		score := 0.6*breadth + 0.4*ownScore
		return score, fmt.Sprintf("breadth %.2f, own %dd drift %+.1f%%", breadth, lookback, own*100), nil
	})
}
