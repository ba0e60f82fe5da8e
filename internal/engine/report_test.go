package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTroublePercent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
		ok   bool
	}{
		{"integer cell", "| 2024-06-01 | 5 |", 5, true},
		{"decimal cell", "| 2024-06-01 | 7.35 |", 7.35, true},
		{"no table", "Summary report without numbers", 0, false},
		{"non-numeric trailing cell", "| 2024-06-01 | n/a |", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTroublePercent(tt.text)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecideSummaryReportBelowThreshold(t *testing.T) {
	eng := testEngine()

	acts := eng.DecideSummaryReport("Summary report\n| 2024-06-01 | 6.9 |")

	assert.Equal(t, ReactionAck, acts.Reaction)
	assert.Empty(t, acts.Comment)
}

func TestDecideSummaryReportAtThreshold(t *testing.T) {
	eng := testEngine()

	acts := eng.DecideSummaryReport("Summary report\n| 2024-06-01 | 7.0 |")

	assert.Equal(t, ReactionUrgent, acts.Reaction)
	assert.Contains(t, acts.Comment, "<@UMGR>")
	assert.Contains(t, acts.Comment, "7.0%")
}

func TestDecideSummaryReportUnparsableIsBenign(t *testing.T) {
	eng := testEngine()

	acts := eng.DecideSummaryReport("Summary report with no table at all")

	assert.Equal(t, ReactionAck, acts.Reaction)
	assert.Empty(t, acts.Comment)
}

func TestParseDeviations(t *testing.T) {
	text := `ActToDayBfr
2024-01-01, MarketX, -5.2%
2024-01-01, MarketY, -1.0%
2024-01-01, MarketZ, -3.0%
garbage line without a percentage`

	devs := ParseDeviations(text, -3.0)

	require.Len(t, devs, 2)
	assert.Equal(t, "MarketX, -5.2%", devs[0].String())
	assert.Equal(t, "MarketZ, -3.0%", devs[1].String())
}

func TestIsDeviationReport(t *testing.T) {
	assert.True(t, IsDeviationReport("ActToDayBfr\n2024-01-01, MarketX, -5.2%"))
	assert.True(t, IsDeviationReport("  acttodaybfr  "))
	assert.False(t, IsDeviationReport("Some other report"))
	assert.False(t, IsDeviationReport(""))
}

func TestDecideDeviationReportWithDeviations(t *testing.T) {
	eng := testEngine()
	text := "ActToDayBfr\n2024-01-01, MarketX, -5.2%\n2024-01-01, MarketY, -1.0%"

	acts := eng.DecideDeviationReport(text)

	assert.Equal(t, ReactionUrgent, acts.Reaction)
	assert.Contains(t, acts.Comment, "• MarketX, -5.2%")
	assert.NotContains(t, acts.Comment, "MarketY")
}

func TestDecideDeviationReportClean(t *testing.T) {
	eng := testEngine()
	text := "ActToDayBfr\n2024-01-01, MarketY, -1.0%"

	acts := eng.DecideDeviationReport(text)

	assert.Equal(t, ReactionAck, acts.Reaction)
	assert.Empty(t, acts.Comment)
}

func TestDecideDeviationReportNoChanges(t *testing.T) {
	eng := testEngine()

	acts := eng.DecideDeviationReport("ActToDayBfr: no changes")

	assert.Equal(t, ReactionAck, acts.Reaction)
	assert.Empty(t, acts.Comment)
}

// The bare report token is an empty report, a distinct error from a clean
// report or a missing one.
func TestDecideDeviationReportEmpty(t *testing.T) {
	eng := testEngine()

	acts := eng.DecideDeviationReport("  ActToDayBfr  ")

	assert.Equal(t, ReactionUrgent, acts.Reaction)
	assert.Contains(t, acts.Comment, "empty")
}
