package domain

import "time"

// EntityKind is the closed set of entity labels kept on a Signal.
type EntityKind string

const (
	EntityPerson   EntityKind = "PERSON"
	EntityOrg      EntityKind = "ORG"
	EntityLocation EntityKind = "LOCATION"
)

// Entity is a named mention extracted from document text.
type Entity struct {
	Name string     `json:"name" bson:"name"`
	Kind EntityKind `json:"kind" bson:"kind"`
}

// SignalMetadata carries provenance shown next to a Signal.
type SignalMetadata struct {
	URL     string `json:"url" bson:"url"`
	Title   string `json:"title" bson:"title"`
	Date    string `json:"date" bson:"date"`
	Excerpt string `json:"excerpt" bson:"excerpt"`
}

// Signal is the enriched, persisted form of one source document.
type Signal struct {
	ID        string
	Type      SourceType
	Country   string
	Topic     string
	Content   string
	Entities  []Entity
	Embedding []float32
	Urgency   float64
	Metadata  SignalMetadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CardID derives the crisis card identifier for a signal.
func CardID(signalID string) string {
	return "card_" + signalID
}

// CrisisCard is the short market-facing summary derived from one Signal.
type CrisisCard struct {
	ID            string    `json:"id"`
	Signal        string    `json:"signal"`
	WhyItMatters  string    `json:"why_it_matters"`
	PlatformPitch string    `json:"platform_pitch"`
	Country       string    `json:"country"`
	Tags          []string  `json:"tags"`
	Urgency       float64   `json:"urgency"`
	Refs          []string  `json:"refs"`
	Timestamp     time.Time `json:"timestamp"`
}
