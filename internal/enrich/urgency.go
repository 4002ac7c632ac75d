package enrich

import (
	"math"
	"strings"
)

// UrgencyKeywords double the sentiment magnitude when present.
var UrgencyKeywords = []string{
	"crisis", "emergency", "urgent", "critical", "dispute",
	"protest", "reform", "regulation", "policy change", "investigation",
}

// UrgencyMultiplier applies when any urgency keyword is present.
const UrgencyMultiplier = 2.0

// Urgency blends sentiment magnitude with keyword presence. Result is in [0, 2].
func Urgency(compound float64, text string) float64 {
	if math.IsNaN(compound) {
		compound = 0
	}
	magnitude := math.Min(math.Abs(compound), 1)
	if HasUrgencyKeyword(text) {
		return magnitude * UrgencyMultiplier
	}
	return magnitude
}

// HasUrgencyKeyword reports whether lowercase(text) contains an urgency keyword.
func HasUrgencyKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range UrgencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
