package domain

import "errors"

// Error kinds surfaced by pipeline stages. Adapters wrap them with %w.
var (
	ErrFetch               = errors.New("fetch failed")
	ErrNormalizationReject = errors.New("document rejected")
	ErrEnrichment          = errors.New("enrichment failed")
	ErrCardGeneration      = errors.New("card generation failed")
	ErrStore               = errors.New("store failed")

	ErrNoSources        = errors.New("no sources configured")
	ErrAllSourcesFailed = errors.New("all sources failed")
)
