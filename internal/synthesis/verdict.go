package synthesis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quantfold/deepstock/internal/models"
)

// Verdict is the structured form of a model reply that passed the
// labeled-line contract.
type Verdict struct {
	Score          float64
	Action         models.Action
	For            []string
	Against        []string
	ExpectedReturn *float64
}

var actionLabels = map[string]models.Action{
	"strong buy":  models.ActionStrongBuy,
	"buy":         models.ActionBuy,
	"hold":        models.ActionHold,
	"sell":        models.ActionSell,
	"strong sell": models.ActionStrongSell,
}

// ParseVerdict validates a model reply against the labeled-line
// contract:
//
//	SCORE: <float in [0,1]>
//	ACTION: <Strong Buy|Buy|Hold|Sell|Strong Sell>
//	FOR: <bullet>            (1 to 3 lines)
//	AGAINST: <bullet>        (1 to 3 lines)
//	EXPECTED_RETURN: <float> (optional)
//
// Any deviation fails the whole parse. Callers treat a parse error as
// "model contribution absent", never as a pipeline failure.
func ParseVerdict(text string) (*Verdict, error) {
	v := &Verdict{}
	scoreSeen := false
	actionSeen := false
	returnSeen := false

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		label, value, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("unlabeled line %q", truncate(line, 40))
		}
		label = strings.ToUpper(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("empty value for %s", label)
		}

		switch label {
		case "SCORE":
			if scoreSeen {
				return nil, fmt.Errorf("duplicate SCORE line")
			}
			score, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("non-numeric score %q", value)
			}
			if score < 0 || score > 1 {
				return nil, fmt.Errorf("score %v outside [0,1]", score)
			}
			v.Score = score
			scoreSeen = true
		case "ACTION":
			if actionSeen {
				return nil, fmt.Errorf("duplicate ACTION line")
			}
			action, ok := actionLabels[strings.ToLower(value)]
			if !ok {
				return nil, fmt.Errorf("unknown action %q", value)
			}
			v.Action = action
			actionSeen = true
		case "FOR":
			if len(v.For) >= 3 {
				return nil, fmt.Errorf("more than 3 FOR bullets")
			}
			v.For = append(v.For, value)
		case "AGAINST":
			if len(v.Against) >= 3 {
				return nil, fmt.Errorf("more than 3 AGAINST bullets")
			}
			v.Against = append(v.Against, value)
		case "EXPECTED_RETURN":
			if returnSeen {
				return nil, fmt.Errorf("duplicate EXPECTED_RETURN line")
			}
			ret, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
			if err != nil {
				return nil, fmt.Errorf("non-numeric expected return %q", value)
			}
			v.ExpectedReturn = &ret
			returnSeen = true
		default:
			return nil, fmt.Errorf("unknown label %q", label)
		}
	}

	if !scoreSeen {
		return nil, fmt.Errorf("missing SCORE line")
	}
	if !actionSeen {
		return nil, fmt.Errorf("missing ACTION line")
	}
	if len(v.For) == 0 {
		return nil, fmt.Errorf("missing FOR bullets")
	}
	if len(v.Against) == 0 {
		return nil, fmt.Errorf("missing AGAINST bullets")
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
