package stages

import (
	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/internal/dataflows"
	"github.com/quantfold/deepstock/internal/synthesis"
)

// Registry builds the full stage set in declared order. The order is
// load-bearing: it is the priority used to break union-map collisions,
// so pillar stages are declared by descending weight.
func Registry(providers dataflows.Providers, synth *synthesis.Synthesizer, logger zerolog.Logger) []Stage {
	return []Stage{
		NewDataCollection(providers, logger),
		NewTechnical(logger),
		NewFundamental(logger),
		NewCashflow(logger),
		NewPeer(logger),
		NewAnalystConsensus(logger),
		NewNewsSentiment(logger),
		NewVideoSentiment(logger),
		NewLeadership(logger),
		NewSectorMacro(logger),
		NewGrowth(logger),
		NewValuation(logger),
		NewSynthesize(synth, logger),
	}
}
