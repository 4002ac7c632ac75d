package domain

import (
	"strings"
	"time"
)

// SourceType enumerates the document families the pipeline understands.
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourcePDF     SourceType = "pdf"
	SourceSocial  SourceType = "social"
)

// ParseSourceType maps fetcher-specific type labels onto a SourceType.
func ParseSourceType(value string) (SourceType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "youtube", "youtube_gov", "video", "transcript":
		return SourceYouTube, true
	case "pdf", "register", "gazette", "hansard":
		return SourcePDF, true
	case "x", "twitter", "social", "post":
		return SourceSocial, true
	default:
		return "", false
	}
}

// TranscriptChunk is one timed caption fragment of a video transcript.
type TranscriptChunk struct {
	Start float64
	Text  string
}

// RawItem is what a fetcher hands over before normalization.
type RawItem struct {
	ID          string
	Title       string
	Content     string
	Transcript  []TranscriptChunk
	Type        string
	Country     string
	Topic       string
	URL         string
	PublishedAt time.Time
}

// RawDocument is the canonical input of the enrichment engine.
type RawDocument struct {
	ID          string
	SourceType  SourceType
	Title       string
	RawText     string
	URL         string
	FetchedAt   time.Time
	// PublishedAt is the upstream publication time; zero when unknown.
	PublishedAt time.Time
	CountryHint string
	TopicHint   string
}
