package models

import (
	"time"

	"github.com/google/uuid"
)

// StageResult is the typed record one stage contributes to the analysis
// union-map. Details is write-once: after the producing stage completes
// the map is never mutated again.
type StageResult struct {
	Stage      string             `json:"stage"`
	Summary    string             `json:"summary"`
	Details    map[string]any     `json:"details,omitempty"`
	Confidence float64            `json:"confidence"`
	PerTicker  map[string]float64 `json:"per_ticker,omitempty"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Widened    bool               `json:"widened,omitempty"`
	Failure    string             `json:"failure,omitempty"`
}

// Patch is a stage's partial state update. The orchestrator is the only
// writer of SharedState; stages only ever hand back patches.
//
// Merge strategies per field:
//   - RawData, Analysis: union-map (per-stage keys)
//   - FinalOutput: last-write-wins scalar, canonical writer = synthesis
//
// The append-only tickers sequence is seeded by the orchestrator at
// state creation, so re-runs can never duplicate entries.
type Patch struct {
	RawData     map[string]*TickerData
	Analysis    map[string]StageResult
	FinalOutput *Report
}

// Empty reports whether the patch carries no contribution at all.
func (p Patch) Empty() bool {
	return len(p.RawData) == 0 && len(p.Analysis) == 0 && p.FinalOutput == nil
}

// SharedState is the per-run accumulator threaded through the task
// graph. It is created fresh per request and discarded once the report
// is returned; nothing here is shared across requests.
type SharedState struct {
	RunID       string
	Request     AnalysisRequest
	StartedAt   time.Time
	Tickers     []string
	RawData     map[string]*TickerData
	Analysis    map[string]StageResult
	Confidences map[string]float64
	RetryCounts map[string]int
	FinalOutput *Report
}

// NewSharedState builds a fresh accumulator for one accepted request.
func NewSharedState(req AnalysisRequest) *SharedState {
	tickers := make([]string, len(req.Tickers))
	copy(tickers, req.Tickers)
	return &SharedState{
		RunID:       uuid.New().String(),
		Request:     req,
		StartedAt:   time.Now(),
		Tickers:     tickers,
		RawData:     make(map[string]*TickerData),
		Analysis:    make(map[string]StageResult),
		Confidences: make(map[string]float64),
		RetryCounts: make(map[string]int),
	}
}

// Snapshot is the read-only view handed to stages. Maps are copied at
// the top level; the values behind them are write-once by contract, so
// a shallow copy is a safe read snapshot.
type Snapshot struct {
	RunID       string
	Request     AnalysisRequest
	Tickers     []string
	RawData     map[string]*TickerData
	Analysis    map[string]StageResult
	Confidences map[string]float64
	RetryCounts map[string]int
}

// Snapshot produces the stage-facing view of the current state.
func (s *SharedState) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:       s.RunID,
		Request:     s.Request,
		Tickers:     make([]string, len(s.Tickers)),
		RawData:     make(map[string]*TickerData, len(s.RawData)),
		Analysis:    make(map[string]StageResult, len(s.Analysis)),
		Confidences: make(map[string]float64, len(s.Confidences)),
		RetryCounts: make(map[string]int, len(s.RetryCounts)),
	}
	copy(snap.Tickers, s.Tickers)
	for k, v := range s.RawData {
		snap.RawData[k] = v
	}
	for k, v := range s.Analysis {
		snap.Analysis[k] = v
	}
	for k, v := range s.Confidences {
		snap.Confidences[k] = v
	}
	for k, v := range s.RetryCounts {
		snap.RetryCounts[k] = v
	}
	return snap
}

// Data returns the collected raw data for a ticker, which may be nil.
func (s Snapshot) Data(ticker string) *TickerData {
	return s.RawData[ticker]
}

// Result looks up a completed stage's contribution.
func (s Snapshot) Result(stage string) (StageResult, bool) {
	r, ok := s.Analysis[stage]
	return r, ok
}
