package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PrismPipeline/internal/domain"
)

var markupExpr = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

// Normalizer converts fetcher output into RawDocuments.
type Normalizer struct {
	now func() time.Time
}

// New returns a Normalizer stamping documents with the wall clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock is used by tests that need stable timestamps.
func NewWithClock(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize validates a raw item and folds its text into a single blob.
// Rejections wrap domain.ErrNormalizationReject.
func (n *Normalizer) Normalize(item domain.RawItem) (domain.RawDocument, error) {
	id := strings.TrimSpace(item.ID)
	if id == "" {
		return domain.RawDocument{}, fmt.Errorf("%w: missing id (title %q)", domain.ErrNormalizationReject, item.Title)
	}

	sourceType, ok := domain.ParseSourceType(item.Type)
	if !ok {
		return domain.RawDocument{}, fmt.Errorf("%w: %s: unknown type %q", domain.ErrNormalizationReject, id, item.Type)
	}

	text := Text(item)
	if text == "" {
		return domain.RawDocument{}, fmt.Errorf("%w: %s: empty text", domain.ErrNormalizationReject, id)
	}

	var publishedAt time.Time
	if !item.PublishedAt.IsZero() {
		publishedAt = item.PublishedAt.UTC()
	}

	return domain.RawDocument{
		ID:          id,
		SourceType:  sourceType,
		Title:       strings.TrimSpace(item.Title),
		RawText:     text,
		URL:         strings.TrimSpace(item.URL),
		FetchedAt:   n.now().UTC(),
		PublishedAt: publishedAt,
		CountryHint: strings.TrimSpace(item.Country),
		TopicHint:   strings.TrimSpace(item.Topic),
	}, nil
}

// Text returns the item's text: transcript chunks joined in order with
// single spaces when present, the content field otherwise.
func Text(item domain.RawItem) string {
	if len(item.Transcript) > 0 {
		parts := make([]string, 0, len(item.Transcript))
		for _, chunk := range item.Transcript {
			if t := strings.TrimSpace(chunk.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if joined := strings.Join(parts, " "); joined != "" {
			return joined
		}
	}

	content := item.Content
	if markupExpr.MatchString(content) {
		content = stripMarkup(content)
	}
	return strings.TrimSpace(content)
}

func stripMarkup(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	doc.Find("script, style, noscript, iframe").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
