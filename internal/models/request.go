package models

import (
	"fmt"
	"strings"
)

// MaxTickers bounds a single request to keep collaborator fan-out sane.
const MaxTickers = 5

// AnalysisRequest describes one analysis run. Immutable once accepted.
type AnalysisRequest struct {
	Tickers          []string `json:"tickers"`
	Market           string   `json:"market"`
	Country          string   `json:"country"`
	ShortHorizonDays int      `json:"short_horizon_days"`
	LongHorizonDays  int      `json:"long_horizon_days"`
}

// ValidationError rejects a malformed request before the pipeline starts.
// It is one of only two error classes surfaced to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Normalize trims and upper-cases tickers and applies horizon defaults.
func (r *AnalysisRequest) Normalize() {
	for i, t := range r.Tickers {
		r.Tickers[i] = strings.TrimSpace(strings.ToUpper(t))
	}
	if r.Market == "" {
		r.Market = "US"
	}
	if r.ShortHorizonDays == 0 {
		r.ShortHorizonDays = 30
	}
	if r.LongHorizonDays == 0 {
		r.LongHorizonDays = 365
	}
}

// Validate checks the request against acceptance rules.
func (r *AnalysisRequest) Validate() error {
	if len(r.Tickers) == 0 {
		return &ValidationError{Field: "tickers", Reason: "at least one ticker is required"}
	}
	if len(r.Tickers) > MaxTickers {
		return &ValidationError{Field: "tickers", Reason: fmt.Sprintf("at most %d tickers per request", MaxTickers)}
	}
	seen := make(map[string]bool, len(r.Tickers))
	for _, t := range r.Tickers {
		if t == "" {
			return &ValidationError{Field: "tickers", Reason: "ticker cannot be empty"}
		}
		if len(t) > 12 {
			return &ValidationError{Field: "tickers", Reason: fmt.Sprintf("ticker too long: %s", t)}
		}
		if seen[t] {
			return &ValidationError{Field: "tickers", Reason: fmt.Sprintf("duplicate ticker: %s", t)}
		}
		seen[t] = true
	}
	if r.ShortHorizonDays < 0 || r.LongHorizonDays < 0 {
		return &ValidationError{Field: "horizon", Reason: "horizons must be non-negative"}
	}
	if r.LongHorizonDays > 0 && r.ShortHorizonDays > r.LongHorizonDays {
		return &ValidationError{Field: "horizon", Reason: "short horizon exceeds long horizon"}
	}
	return nil
}
