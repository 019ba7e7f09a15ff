package stages

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

// Peer positions each ticker against the others in the same request:
// cheaper relative valuation and stronger recent momentum rank higher.
// With a single-ticker request the pillar is neutral.
type Peer struct {
	log zerolog.Logger
}

func NewPeer(logger zerolog.Logger) *Peer {
	return &Peer{log: logger.With().Str("stage", consts.StagePeer).Logger()}
}

func (s *Peer) Name() string { return consts.StagePeer }

func (s *Peer) DependsOn() []string {
	return []string{consts.StageFundamental}
}

func (s *Peer) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()

	peRank := rankAscending(snap, func(data *models.TickerData) (float64, bool) {
		pe, ok := infoFloat(data.Info, "pe_trailing")
		return pe, ok && pe > 0
	})
	momentumRank := rankDescending(snap, func(data *models.TickerData) (float64, bool) {
		return momentum(data.Closes(), 30)
	})

	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		var signals []float64
		if r, ok := peRank[ticker]; ok {
			signals = append(signals, r)
		}
		if r, ok := momentumRank[ticker]; ok {
			signals = append(signals, r)
		}
		if len(signals) == 0 {
			return 0.5, "no peer metrics, neutral", nil
		}
		score := mean(signals)
		return score, fmt.Sprintf("peer rank %.2f", score), nil
	})
}

type metricFn func(data *models.TickerData) (float64, bool)

// rankAscending scores each ticker by its rank with the lowest metric
// value best. Ranks are spread over [0,1]; a lone ticker gets 0.5.
func rankAscending(snap models.Snapshot, metric metricFn) map[string]float64 {
	return rank(snap, metric, false)
}

// rankDescending scores the highest metric value best.
func rankDescending(snap models.Snapshot, metric metricFn) map[string]float64 {
	return rank(snap, metric, true)
}

func rank(snap models.Snapshot, metric metricFn, highBest bool) map[string]float64 {
	type entry struct {
		ticker string
		value  float64
	}
	var entries []entry
	for _, ticker := range snap.Tickers {
		data := snap.Data(ticker)
		if !data.Usable() {
			continue
		}
		if v, ok := metric(data); ok {
			entries = append(entries, entry{ticker, v})
		}
	}

	out := make(map[string]float64, len(entries))
	if len(entries) == 0 {
		return out
	}
	if len(entries) == 1 {
		out[entries[0].ticker] = 0.5
		return out
	}

	sort.Slice(entries, func(i, j int) bool {
		if highBest {
			return entries[i].value > entries[j].value
		}
		return entries[i].value < entries[j].value
	})
	for i, e := range entries {
		// Best rank 1.0, worst 0.0.
		out[e.ticker] = 1 - float64(i)/float64(len(entries)-1)
	}
	return out
}

// momentum returns the fractional price change over the trailing days.
func momentum(closes []float64, days int) (float64, bool) {
	if len(closes) < days+1 {
		return 0, false
	}
	past := closes[len(closes)-1-days]
	if past == 0 {
		return 0, false
	}
	return (closes[len(closes)-1] - past) / past, true
}
