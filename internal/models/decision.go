package models

import "time"

// Action is the recommended position on a ticker.
type Action string

const (
	ActionStrongBuy  Action = "Strong Buy"
	ActionBuy        Action = "Buy"
	ActionHold       Action = "Hold"
	ActionSell       Action = "Sell"
	ActionStrongSell Action = "Strong Sell"
)

// Decision is the synthesized recommendation for one ticker.
// Immutable once produced.
type Decision struct {
	Ticker              string   `json:"ticker"`
	Action              Action   `json:"action"`
	Score               float64  `json:"score"`
	CompositeScore      float64  `json:"composite_score"`
	Grade               string   `json:"grade"`
	Stars               int      `json:"stars"`
	ExpectedReturnShort float64  `json:"expected_return_short"`
	ExpectedReturnLong  float64  `json:"expected_return_long"`
	ReasonsFor          []string `json:"reasons_for"`
	ReasonsAgainst      []string `json:"reasons_against"`
	ModelAdjusted       bool     `json:"model_adjusted"`
}

// TickerReport bundles every stage's result for one ticker with the
// final decision.
type TickerReport struct {
	Ticker   string                 `json:"ticker"`
	Stages   map[string]StageResult `json:"stages"`
	Decision Decision               `json:"decision"`
}

// Report is the run output: one TickerReport per requested ticker.
// Degraded is set when any stage finished below full confidence, so
// callers can tell a clean run from a best-effort one.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Request     AnalysisRequest `json:"request"`
	Tickers     []TickerReport `json:"tickers"`
	Degraded    bool           `json:"degraded"`
}

// Find returns the per-ticker report for a symbol, if present.
func (r *Report) Find(ticker string) (TickerReport, bool) {
	for _, tr := range r.Tickers {
		if tr.Ticker == ticker {
			return tr, true
		}
	}
	return TickerReport{}, false
}
