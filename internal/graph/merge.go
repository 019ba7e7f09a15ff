package graph

import (
	"github.com/rs/zerolog"

	"github.com/quantfold/deepstock/internal/models"
)

// merger folds stage patches into the shared state. It is the single
// writer: the orchestrator calls apply sequentially after each wave, so
// no lock is needed.
//
// Union-map collisions are resolved by stage priority: the write from
// the earlier-registered stage sticks, the later one is dropped and
// logged. FinalOutput is last-write-wins.
type merger struct {
	state      *models.SharedState
	rawWriter  map[string]int
	analysisBy map[string]int
	outputPrio int
	log        zerolog.Logger
}

func newMerger(state *models.SharedState, logger zerolog.Logger) *merger {
	return &merger{
		state:      state,
		rawWriter:  make(map[string]int),
		analysisBy: make(map[string]int),
		outputPrio: -1,
		log:        logger.With().Str("component", "merge").Logger(),
	}
}

// apply folds one stage's patch into the state under the stage's
// priority. A re-run patch from the same stage replaces its own earlier
// writes; writes from different stages obey the earlier-wins rule.
func (m *merger) apply(stage string, priority int, patch models.Patch) {
	for ticker, data := range patch.RawData {
		if data == nil {
			continue
		}
		if prev, taken := m.rawWriter[ticker]; taken && prev < priority {
			m.log.Warn().
				Str("stage", stage).
				Str("ticker", ticker).
				Msg("raw data collision dropped")
			continue
		}
		m.state.RawData[ticker] = data
		m.rawWriter[ticker] = priority
	}

	for name, res := range patch.Analysis {
		if prev, taken := m.analysisBy[name]; taken && prev < priority {
			m.log.Warn().
				Str("stage", stage).
				Str("key", name).
				Msg("analysis collision dropped")
			continue
		}
		m.state.Analysis[name] = res
		m.state.Confidences[name] = res.Confidence
		m.analysisBy[name] = priority
	}

	if patch.FinalOutput != nil {
		if m.outputPrio >= 0 {
			m.log.Warn().Str("stage", stage).Msg("final output overwritten")
		}
		m.state.FinalOutput = patch.FinalOutput
		m.outputPrio = priority
	}
}
