package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"PrismPipeline/internal/domain"
)

func TestBuildDigestRanksTopCards(t *testing.T) {
	t.Parallel()

	summary := domain.RunSummary{RunID: "run-7", SignalsStored: 3, CardsGenerated: 3, AverageUrgency: 1, CardFailures: 1}
	cards := []domain.CrisisCard{
		{ID: "card_a", Signal: "Low", Country: "USA", Urgency: 0.2},
		{ID: "card_b", Signal: "High", Country: "Mexico", Urgency: 1.8, Tags: []string{"energy_policy", "Pemex"}},
		{ID: "card_c", Signal: "Mid", Country: "Canada", Urgency: 1.0},
	}

	digest := BuildDigest(summary, cards, 2)

	assert.Contains(t, digest, "*PRISM run run-7*")
	assert.Contains(t, digest, "Signals: 3, cards: 3, avg urgency: 1.00")
	assert.Contains(t, digest, "Failures: 1")
	assert.Contains(t, digest, "Tags: energy_policy, Pemex")
	assert.NotContains(t, digest, "Low")
	assert.Less(t, strings.Index(digest, "[Mexico] High"), strings.Index(digest, "[Canada] Mid"))
	assert.Equal(t, "card_a", cards[0].ID)
}
