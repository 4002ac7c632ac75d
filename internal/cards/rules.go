package cards

import (
	"strings"

	"PrismPipeline/internal/domain"
)

const (
	// BoostFactor multiplies urgency when the card text names a boost keyword.
	BoostFactor = 1.5
	// MaxOrgTags is how many ORG entities become tags.
	MaxOrgTags = 3
)

// BoostKeywords trigger the urgency boost.
var BoostKeywords = []string{"reform", "regulation", "policy change"}

// BoostedUrgency always starts from the signal's own urgency, so re-running
// the generator never compounds a previous boost.
func BoostedUrgency(base float64, cardText string) float64 {
	lower := strings.ToLower(cardText)
	for _, kw := range BoostKeywords {
		if strings.Contains(lower, kw) {
			return base * BoostFactor
		}
	}
	return base
}

// BuildTags returns topic followed by the first ORG entity names, without duplicates.
func BuildTags(topic string, entities []domain.Entity) []string {
	tags := make([]string, 0, 1+MaxOrgTags)
	seen := map[string]struct{}{}
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(topic)
	orgs := 0
	for _, ent := range entities {
		if ent.Kind != domain.EntityOrg {
			continue
		}
		if orgs == MaxOrgTags {
			break
		}
		orgs++
		add(ent.Name)
	}
	return tags
}
