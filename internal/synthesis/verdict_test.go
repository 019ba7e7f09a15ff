package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/deepstock/internal/models"
)

const goodReply = `SCORE: 0.72
ACTION: Buy
FOR: revenue beat last quarter
FOR: strong cash position
AGAINST: rich valuation
EXPECTED_RETURN: 8.5`

func TestParseVerdictAcceptsContract(t *testing.T) {
	v, err := ParseVerdict(goodReply)
	require.NoError(t, err)
	assert.Equal(t, 0.72, v.Score)
	assert.Equal(t, models.ActionBuy, v.Action)
	assert.Equal(t, []string{"revenue beat last quarter", "strong cash position"}, v.For)
	assert.Equal(t, []string{"rich valuation"}, v.Against)
	require.NotNil(t, v.ExpectedReturn)
	assert.Equal(t, 8.5, *v.ExpectedReturn)
}

func TestParseVerdictPercentSuffixAndBlankLines(t *testing.T) {
	v, err := ParseVerdict("\nSCORE: 0.4\n\nACTION: sell\nFOR: cheap\nAGAINST: shrinking margins\nEXPECTED_RETURN: -4%\n")
	require.NoError(t, err)
	assert.Equal(t, models.ActionSell, v.Action)
	assert.Equal(t, -4.0, *v.ExpectedReturn)
}

func TestParseVerdictExpectedReturnOptional(t *testing.T) {
	v, err := ParseVerdict("SCORE: 0.6\nACTION: Hold\nFOR: stable\nAGAINST: slow growth")
	require.NoError(t, err)
	assert.Nil(t, v.ExpectedReturn)
}

func TestParseVerdictFailsClosed(t *testing.T) {
	cases := map[string]string{
		"missing score":      "ACTION: Buy\nFOR: a\nAGAINST: b",
		"missing action":     "SCORE: 0.5\nFOR: a\nAGAINST: b",
		"missing for":        "SCORE: 0.5\nACTION: Buy\nAGAINST: b",
		"missing against":    "SCORE: 0.5\nACTION: Buy\nFOR: a",
		"score out of range": "SCORE: 1.5\nACTION: Buy\nFOR: a\nAGAINST: b",
		"score not numeric":  "SCORE: high\nACTION: Buy\nFOR: a\nAGAINST: b",
		"unknown action":     "SCORE: 0.5\nACTION: Accumulate\nFOR: a\nAGAINST: b",
		"unknown label":      "SCORE: 0.5\nACTION: Buy\nFOR: a\nAGAINST: b\nNOTE: extra",
		"unlabeled prose":    "I think this is a buy.\nSCORE: 0.5\nACTION: Buy\nFOR: a\nAGAINST: b",
		"duplicate score":    "SCORE: 0.5\nSCORE: 0.6\nACTION: Buy\nFOR: a\nAGAINST: b",
		"too many for":       "SCORE: 0.5\nACTION: Buy\nFOR: a\nFOR: b\nFOR: c\nFOR: d\nAGAINST: x",
		"bad return":         "SCORE: 0.5\nACTION: Buy\nFOR: a\nAGAINST: b\nEXPECTED_RETURN: lots",
		"empty value":        "SCORE:\nACTION: Buy\nFOR: a\nAGAINST: b",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVerdict(reply)
			assert.Error(t, err)
		})
	}
}
