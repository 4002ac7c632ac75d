package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"PrismPipeline/internal/ports"
)

// VaderScorer scores text with the VADER lexicon.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ ports.SentimentScorer = (*VaderScorer)(nil)

// NewVaderScorer loads the bundled lexicon.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score returns the compound polarity clamped to [-1, 1].
func (v *VaderScorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	c := v.analyzer.PolarityScores(text).Compound
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}
