package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoObject = errors.New("no JSON object in model output")

// modelCard is the subset of the model's answer the generator trusts.
type modelCard struct {
	Signal         string `json:"signal"`
	WhyItMatters   string `json:"why_it_matters"`
	WhyTradersCare string `json:"why_traders_care"`
	PlatformPitch  string `json:"platform_pitch"`
}

// parseModelCard decodes the text between the first '{' and the last '}'.
// Commentary the model adds around the object is ignored.
func parseModelCard(output string) (modelCard, error) {
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end <= start {
		return modelCard{}, errNoObject
	}

	var card modelCard
	if err := json.Unmarshal([]byte(output[start:end+1]), &card); err != nil {
		return modelCard{}, fmt.Errorf("decode card: %w", err)
	}

	card.Signal = strings.TrimSpace(card.Signal)
	if card.Signal == "" {
		return modelCard{}, errors.New("card has no signal text")
	}
	if strings.TrimSpace(card.WhyItMatters) == "" {
		card.WhyItMatters = card.WhyTradersCare
	}
	return card, nil
}
