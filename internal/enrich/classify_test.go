package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCountry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		text string
		want string
	}{
		{"Texas House Energy Grid hearing", "USA"},
		{"Cámara de Diputados sesión", "Mexico"},
		{"HANSARD - 45-1 sitting 12", "Canada"},
		{"Canada Gazette Part I", "Canada"},
		{"Federal Register: Daily Issue", "USA"},
		{"Mexico and Texas water treaty", "Mexico"},
		{"Philippines Senate plenary", UnknownCountry},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, DetectCountry(tc.text), tc.text)
	}
}

func TestDetectTopicOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "energy_policy", DetectTopic("Grid budget for lithium mining"))
	assert.Equal(t, "agriculture_policy", DetectTopic("Water rights and tax credits"))
	assert.Equal(t, "fiscal_policy", DetectTopic("Budget committee"))
	assert.Equal(t, "mining_policy", DetectTopic("Copper royalties"))
	assert.Equal(t, DefaultTopic, DetectTopic("Session opens"))
}

func TestInferFallsBackToTextThenHint(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Canada", InferCountry("X post", "Ontario premier speaks", "Mexico"))
	assert.Equal(t, "Mexico", InferCountry("Gov Hearing", "plenary session", "Mexico"))
	assert.Equal(t, "Canada", InferCountry("Gov Hearing", "plenary session", " canada "))
	assert.Equal(t, UnknownCountry, InferCountry("", "", " "))

	assert.Equal(t, "mining_policy", InferTopic("X post", "new mineral rules", "fiscal_policy"))
	assert.Equal(t, "fiscal_policy", InferTopic("Gov Hearing", "plenary session", "fiscal_policy"))
	assert.Equal(t, DefaultTopic, InferTopic("", "", ""))
}

func TestInferIgnoresHintsOutsideKnownSets(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownCountry, InferCountry("Plenary", "session opened", "Atlantis"))
	assert.Equal(t, UnknownCountry, InferCountry("Gov Hearing", "plenary session", "Philippines"))

	assert.Equal(t, DefaultTopic, InferTopic("Plenary", "session opened", "anything goes"))
	assert.Equal(t, DefaultTopic, InferTopic("Gov Hearing", "plenary session", "senate_hearing"))
}
