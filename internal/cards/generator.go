package cards

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

const (
	// PromptContentChars bounds how much signal content reaches the model.
	PromptContentChars = 1500

	maxSignalChars = 600
	maxWhyChars    = 600
	maxPitchChars  = 300
)

// SystemPrompt instructs the model to answer with a bare JSON object.
const SystemPrompt = "You extract policy signals for financial markets. " +
	"Respond with a single JSON object and nothing else: no markdown, no commentary."

// Generator derives crisis cards from signals through a language model.
type Generator struct {
	model  ports.LanguageModel
	policy retry.Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator wires the model; a zero policy falls back to retry.DefaultPolicy.
func NewGenerator(model ports.LanguageModel, policy retry.Policy, logger *slog.Logger) *Generator {
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{model: model, policy: policy, logger: logger, now: time.Now}
}

// WithClock overrides the card timestamp source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	if now != nil {
		g.now = now
	}
	return g
}

// Generate asks the model for a card and enforces id, urgency, country, tags
// and refs from the signal. Failures wrap domain.ErrCardGeneration.
func (g *Generator) Generate(ctx context.Context, signal domain.Signal) (domain.CrisisCard, error) {
	if g.model == nil {
		return domain.CrisisCard{}, fmt.Errorf("%w: %s: no language model", domain.ErrCardGeneration, signal.ID)
	}

	prompt := BuildPrompt(signal)
	output, err := retry.Do(ctx, g.policy, g.logger, "complete", func(callCtx context.Context) (string, error) {
		return g.model.Complete(callCtx, SystemPrompt, prompt)
	})
	if err != nil {
		return domain.CrisisCard{}, fmt.Errorf("%w: %s: model call: %w", domain.ErrCardGeneration, signal.ID, err)
	}

	parsed, err := parseModelCard(output)
	if err != nil {
		return domain.CrisisCard{}, fmt.Errorf("%w: %s: %w", domain.ErrCardGeneration, signal.ID, err)
	}

	text := domain.Truncate(parsed.Signal, maxSignalChars)
	return domain.CrisisCard{
		ID:            domain.CardID(signal.ID),
		Signal:        text,
		WhyItMatters:  domain.Truncate(strings.TrimSpace(parsed.WhyItMatters), maxWhyChars),
		PlatformPitch: domain.Truncate(strings.TrimSpace(parsed.PlatformPitch), maxPitchChars),
		Country:       signal.Country,
		Tags:          BuildTags(signal.Topic, signal.Entities),
		Urgency:       BoostedUrgency(signal.Urgency, text),
		Refs:          []string{signal.ID},
		Timestamp:     g.now().UTC(),
	}, nil
}

// BuildPrompt renders the user prompt for one signal.
func BuildPrompt(signal domain.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From %s source on %s in %s:\n", signal.Type, signal.Topic, signal.Country)
	fmt.Fprintf(&b, "Title: %s\n", signal.Metadata.Title)
	fmt.Fprintf(&b, "Content: %s\n\n", domain.Truncate(signal.Content, PromptContentChars))
	b.WriteString("Generate JSON:\n")
	b.WriteString("{\n")
	b.WriteString(`"signal": "Key regulatory shift or policy change (50 words)",` + "\n")
	b.WriteString(`"why_it_matters": "Market/sector impact for traders (50 words)",` + "\n")
	b.WriteString(`"platform_pitch": "Engaging social media hook (30 words)"` + "\n")
	b.WriteString("}\n\n")
	b.WriteString("Focus on actionable insights for traders, ESG desks, and policy watchers.")
	return b.String()
}
