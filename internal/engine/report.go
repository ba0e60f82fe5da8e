package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// DeviationReportName is the bare token that opens every daily deviation
// report message.
const DeviationReportName = "ActToDayBfr"

const noChangesMarker = "no changes"

// troublePercentRe matches the last numeric cell of a pipe-delimited table
// row, which carries the summary report's trouble percentage.
var troublePercentRe = regexp.MustCompile(`(?m)\|\s*([\d.]+)\s*\|$`)

// deviationLineRe matches a "date, label, -99.7%" report line.
var deviationLineRe = regexp.MustCompile(`,\s*([^,]+),\s*(-?\d+(\.\d+)?)%`)

// Deviation is one labelled percentage extracted from a deviation report.
type Deviation struct {
	Label   string
	Percent float64
}

func (d Deviation) String() string {
	return fmt.Sprintf("%s, %.1f%%", d.Label, d.Percent)
}

// ParseTroublePercent extracts the trailing numeric table cell from a
// summary report body. ok is false when no cell parses.
func ParseTroublePercent(text string) (float64, bool) {
	m := troublePercentRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDeviations scans every report line and collects entries whose value
// is at or below threshold (more negative is worse).
func ParseDeviations(text string, threshold float64) []Deviation {
	var out []Deviation
	for _, line := range strings.Split(text, "\n") {
		m := deviationLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if v <= threshold {
			out = append(out, Deviation{Label: strings.TrimSpace(m[1]), Percent: v})
		}
	}
	return out
}

// IsDeviationReport reports whether text opens with the deviation report
// token.
func IsDeviationReport(text string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), strings.ToLower(DeviationReportName))
}

// DecideSummaryReport applies the threshold policy to a summary report
// body. An unparsable percentage is benign and only acknowledged.
func (e *Engine) DecideSummaryReport(text string) models.Actions {
	value, ok := ParseTroublePercent(text)
	if !ok || value < e.troubleThreshold {
		return models.Actions{Reaction: ReactionAck}
	}
	return models.Actions{
		Reaction: ReactionUrgent,
		Comment: fmt.Sprintf("<@%s> Please take this over, the trouble percentage reached %.1f%% (threshold %.1f%%). FYI: <@%s>",
			e.mentions.Manager, value, e.troubleThreshold, e.mentions.Owner),
	}
}

// DecideDeviationReport distinguishes the four shapes a deviation report
// can take: explicit no-changes, an empty report (the bare token and nothing
// else), one or more qualifying deviations, or a clean report.
func (e *Engine) DecideDeviationReport(text string) models.Actions {
	trimmed := strings.TrimSpace(text)

	if strings.Contains(strings.ToLower(trimmed), noChangesMarker) {
		return models.Actions{Reaction: ReactionAck}
	}

	if strings.EqualFold(trimmed, DeviationReportName) {
		return models.Actions{
			Reaction: ReactionUrgent,
			Comment: fmt.Sprintf("<@%s> <@%s> The report arrived empty, please check why.",
				e.mentions.Owner, e.mentions.Manager),
		}
	}

	deviations := ParseDeviations(trimmed, e.deviationThreshold)
	if len(deviations) == 0 {
		return models.Actions{Reaction: ReactionAck}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<@%s> <@%s> Deviations found:\n", e.mentions.Owner, e.mentions.Manager)
	for _, d := range deviations {
		fmt.Fprintf(&b, "• %s\n", d)
	}
	b.WriteString("Please check what went wrong.")

	return models.Actions{Reaction: ReactionUrgent, Comment: b.String()}
}
