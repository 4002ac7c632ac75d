package enrich

import (
	"strings"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	// MaxEntities caps the entity list on a Signal.
	MaxEntities = 10
	// EntityInputChars bounds how much text goes to the recognizer.
	EntityInputChars = 5000
)

// entityKind maps recognizer labels onto the kinds a Signal keeps.
func entityKind(label string) (domain.EntityKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PERSON", "PER":
		return domain.EntityPerson, true
	case "ORG", "ORGANIZATION":
		return domain.EntityOrg, true
	case "GPE", "LOC", "LOCATION":
		return domain.EntityLocation, true
	default:
		return "", false
	}
}

// MergeEntities filters, dedups by exact name (first occurrence wins) and caps.
func MergeEntities(found []ports.RecognizedEntity) []domain.Entity {
	seen := make(map[string]struct{}, len(found))
	out := make([]domain.Entity, 0, MaxEntities)
	for _, ent := range found {
		if len(out) == MaxEntities {
			break
		}
		kind, ok := entityKind(ent.Label)
		if !ok {
			continue
		}
		name := strings.TrimSpace(ent.Text)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, domain.Entity{Name: name, Kind: kind})
	}
	return out
}
