package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/consts"
	"github.com/quantfold/deepstock/internal/models"
)

var bullishTerms = []string{
	"beat", "beats", "surge", "surges", "soar", "soars", "rally",
	"record", "upgrade", "upgraded", "outperform", "buy", "strong",
	"growth", "profit", "gain", "gains", "bullish", "raise", "raised",
	"exceed", "exceeds", "breakthrough", "expansion",
}

var bearishTerms = []string{
	"miss", "misses", "plunge", "plunges", "fall", "falls", "drop",
	"drops", "downgrade", "downgraded", "underperform", "sell", "weak",
	"loss", "losses", "decline", "bearish", "cut", "cuts", "lawsuit",
	"probe", "recall", "layoff", "layoffs", "warning", "bankruptcy",
}

// textSentiment scores a piece of text into [0,1] by counting lexicon
// hits. 0.5 is neutral.
func textSentiment(text string) float64 {
	lower := strings.ToLower(text)
	bull, bear := 0, 0
	for _, term := range bullishTerms {
		bull += strings.Count(lower, term)
	}
	for _, term := range bearishTerms {
		bear += strings.Count(lower, term)
	}
	total := bull + bear
	if total == 0 {
		return 0.5
	}
	return float64(bull) / float64(total)
}

// NewsSentiment aggregates headline sentiment per ticker. The first
// pass only considers the last week of coverage; the widened re-run
// takes everything collected.
type NewsSentiment struct {
	recency time.Duration
	log     zerolog.Logger
}

func NewNewsSentiment(logger zerolog.Logger) *NewsSentiment {
	return &NewsSentiment{
		recency: 7 * 24 * time.Hour,
		log:     logger.With().Str("stage", consts.StageNewsSentiment).Logger(),
	}
}

func (s *NewsSentiment) Name() string        { return consts.StageNewsSentiment }
func (s *NewsSentiment) DependsOn() []string { return []string{consts.StageDataCollection} }

func (s *NewsSentiment) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()
	cutoff := time.Now().Add(-s.recency)

	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if len(data.Headlines) == 0 {
			return 0, "", fmt.Errorf("no headlines")
		}

		scored := 0
		total := 0.0
		for _, h := range data.Headlines {
			if !info.Widened && !h.PublishedAt.IsZero() && h.PublishedAt.Before(cutoff) {
				continue
			}
			total += textSentiment(h.Headline)
			scored++
		}
		if scored == 0 {
			return 0, "", fmt.Errorf("no recent headlines")
		}
		score := total / float64(scored)
		return score, fmt.Sprintf("%d headlines, sentiment %.2f", scored, score), nil
	})
}

// VideoSentiment aggregates video coverage sentiment, weighting each
// item by its channel's credibility so one shouting channel cannot
// swing the pillar.
type VideoSentiment struct {
	minCredibility float64
	log            zerolog.Logger
}

func NewVideoSentiment(logger zerolog.Logger) *VideoSentiment {
	return &VideoSentiment{
		minCredibility: 0.5,
		log:            logger.With().Str("stage", consts.StageVideoSentiment).Logger(),
	}
}

func (s *VideoSentiment) Name() string        { return consts.StageVideoSentiment }
func (s *VideoSentiment) DependsOn() []string { return []string{consts.StageDataCollection} }

func (s *VideoSentiment) Run(ctx context.Context, snap models.Snapshot, info RunInfo) (models.Patch, error) {
	started := time.Now()

	minCred := s.minCredibility
	if info.Widened {
		// Relax the source filter on the re-run.
		minCred = 0
	}

	return evalTickers(s.Name(), started, info, snap, func(ticker string, data *models.TickerData) (float64, string, error) {
		if len(data.Videos) == 0 {
			return 0, "", fmt.Errorf("no video coverage")
		}

		weightedSum, weightTotal := 0.0, 0.0
		used := 0
		for _, v := range data.Videos {
			if v.ChannelCredibility < minCred {
				continue
			}
			weight := v.ChannelCredibility
			if weight <= 0 {
				weight = 0.1
			}
			weightedSum += textSentiment(v.Title+" "+v.Description) * weight
			weightTotal += weight
			used++
		}
		if used == 0 || weightTotal == 0 {
			return 0, "", fmt.Errorf("no credible video sources")
		}
		score := weightedSum / weightTotal
		return score, fmt.Sprintf("%d videos, sentiment %.2f", used, score), nil
	})
}
