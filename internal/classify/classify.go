// Package classify maps inbound messages to signal kinds and report types
// using ordered substring rules. The rule order is part of the contract:
// the first matching rule wins, kinds never combine.
package classify

import (
	"strings"

	"github.com/prevura-jpg/AI-assistant/internal/match"
	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// criticalMarkers are hard-failure substrings. Any one of them makes the
// message critical regardless of what else it contains.
var criticalMarkers = []string{
	"sqlstate",
	"connection refused",
	"an exception occurred in the driver",
	"is the server running on that host",
}

// legacyParserMarker tags notifications from the old order parser.
const legacyParserMarker = "new orders for:"

// Classify returns the signal kind for an alert-channel message.
func Classify(text string) models.Kind {
	normalized := strings.ToLower(text)
	for _, marker := range criticalMarkers {
		if strings.Contains(normalized, marker) {
			return models.KindCritical
		}
	}
	if strings.Contains(normalized, legacyParserMarker) {
		return models.KindLegacyParser
	}
	return models.KindRepeating
}

// Report-type markers, checked in priority order. At most one type matches;
// a message carrying several markers is classified by the first rule.
var reportRules = []struct {
	phrase string
	typ    models.ReportType
}{
	{"Summary report", models.ReportSummary},
	{"Report by shop", models.ReportByShop},
	{"Business", models.ReportByBusiness},
}

// ClassifyReport identifies which recurring report a report-channel message
// carries, or ReportNone if it matches no marker.
func ClassifyReport(ev models.Event) models.ReportType {
	for _, rule := range reportRules {
		if match.ContainsPhrase(ev, rule.phrase) {
			return rule.typ
		}
	}
	return models.ReportNone
}
