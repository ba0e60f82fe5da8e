// Package match decides whether a target phrase is present in a chat
// message, across every representation Slack may deliver it in.
package match

import (
	"strings"

	"github.com/prevura-jpg/AI-assistant/internal/models"
)

// ContainsPhrase reports whether the event contains phrase, case-insensitively,
// either in its primary text or in any text leaf of its block tree.
func ContainsPhrase(ev models.Event, phrase string) bool {
	needle := strings.ToLower(phrase)

	if ev.Text != "" && strings.Contains(strings.ToLower(ev.Text), needle) {
		return true
	}

	for _, b := range ev.Blocks {
		if blockContains(b, needle) {
			return true
		}
	}
	return false
}

// blockContains walks one block subtree looking for a text leaf that carries
// the needle. The needle is already lower-cased.
func blockContains(b models.Block, needle string) bool {
	if b.Type == "text" && b.PlainText != "" &&
		strings.Contains(strings.ToLower(b.PlainText), needle) {
		return true
	}
	// Section blocks carry their text directly on the node.
	if b.Type == "section" && b.PlainText != "" &&
		strings.Contains(strings.ToLower(b.PlainText), needle) {
		return true
	}
	for _, child := range b.Elements {
		if blockContains(child, needle) {
			return true
		}
	}
	return false
}

// NormalizeText lower-cases text and collapses runs of whitespace, producing
// the canonical key a recurring signal is tracked under.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
