package domain

import (
	"strings"
	"time"
)

// Stage names the phase a pipeline run is in.
type Stage string

const (
	StageFetching       Stage = "FETCHING"
	StageNormalizing    Stage = "NORMALIZING"
	StageEnriching      Stage = "ENRICHING_STORING"
	StageCardGenerating Stage = "CARD_GENERATING"
	StageSummarizing    Stage = "SUMMARIZING"
	StageDone           Stage = "DONE"
)

// DocumentFailure records why a single document did not make it through.
type DocumentFailure struct {
	DocumentID string `json:"document_id"`
	Stage      Stage  `json:"stage"`
	Err        string `json:"error"`
}

// RunSummary reports what one pipeline run produced. Nothing here is persisted.
type RunSummary struct {
	RunID          string            `json:"run_id"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
	Stage          Stage             `json:"stage"`
	Fetched        int               `json:"fetched"`
	Rejected       int               `json:"rejected"`
	EnrichFailures int               `json:"enrich_failures"`
	SignalsStored  int               `json:"signals_stored"`
	CardsGenerated int               `json:"cards_generated"`
	CardFailures   int               `json:"card_failures"`
	StoreErrors    int               `json:"store_errors"`
	FetchErrors    map[string]int    `json:"fetch_errors"`
	Failures       []DocumentFailure `json:"failures,omitempty"`
	AverageUrgency float64           `json:"average_urgency"`
	TopCard        *CrisisCard       `json:"top_card,omitempty"`
	CardsBySource  map[string]int    `json:"cards_by_source"`
}

// NewRunSummary returns a summary with its maps initialized.
func NewRunSummary(runID string, startedAt time.Time) RunSummary {
	return RunSummary{
		RunID:         runID,
		StartedAt:     startedAt,
		Stage:         StageFetching,
		FetchErrors:   map[string]int{},
		CardsBySource: map[string]int{},
	}
}

// Summarize computes reporting statistics from the cards generated in a run.
func (s *RunSummary) Summarize(cards []CrisisCard) {
	s.AverageUrgency = 0
	s.TopCard = nil
	if len(cards) == 0 {
		return
	}

	var total float64
	for i := range cards {
		total += cards[i].Urgency
		if s.TopCard == nil || cards[i].Urgency > s.TopCard.Urgency {
			top := cards[i]
			s.TopCard = &top
		}
		s.CardsBySource[sourcePrefix(cards[i].Refs)]++
	}
	s.AverageUrgency = total / float64(len(cards))
}

func sourcePrefix(refs []string) string {
	if len(refs) == 0 {
		return "unknown"
	}
	prefix, _, ok := strings.Cut(refs[0], "_")
	if !ok || prefix == "" {
		return "unknown"
	}
	return prefix
}
