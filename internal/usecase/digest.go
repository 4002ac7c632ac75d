package usecase

import (
	"fmt"
	"sort"
	"strings"

	"PrismPipeline/internal/domain"
)

// BuildDigest renders the run totals plus the top cards by urgency as a
// Markdown message for notifiers.
func BuildDigest(summary domain.RunSummary, cards []domain.CrisisCard, top int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*PRISM run %s*\n", summary.RunID)
	fmt.Fprintf(&b, "Signals: %d, cards: %d, avg urgency: %.2f\n",
		summary.SignalsStored, summary.CardsGenerated, summary.AverageUrgency)
	if failed := summary.EnrichFailures + summary.CardFailures + summary.StoreErrors; failed > 0 {
		fmt.Fprintf(&b, "Failures: %d\n", failed)
	}

	ranked := make([]domain.CrisisCard, len(cards))
	copy(ranked, cards)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Urgency > ranked[j].Urgency
	})
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	for _, card := range ranked {
		fmt.Fprintf(&b, "\n- [%s] %s\nUrgency: %.2f\n%s\n",
			card.Country,
			card.Signal,
			card.Urgency,
			card.WhyItMatters)
		if len(card.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n", strings.Join(card.Tags, ", "))
		}
	}

	return b.String()
}
