package fetcher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	// KindPageLinks scrapes a legislative index page and follows its document links.
	KindPageLinks = "pagelinks"

	defaultLinkSelector    = "a[href]"
	defaultContentSelector = "main, article, #content, body"
)

// hostCountries maps official publication hosts to their country.
var hostCountries = []struct {
	host    string
	country string
}{
	{"gazette.gc.ca", "Canada"},
	{"ourcommons.ca", "Canada"},
	{"govinfo.gov", "USA"},
	{"congress.gov", "USA"},
	{"diputados.gob.mx", "Mexico"},
	{"senado.gob.mx", "Mexico"},
	{"dof.gob.mx", "Mexico"},
}

// PageLinks crawls one index page, picks document links and extracts each
// linked HTML page as an item. PDF links are skipped.
type PageLinks struct {
	name            string
	indexURL        *url.URL
	match           string
	linkSelector    string
	contentSelector string
	limit           int
	country         string
	topic           string
	client          *http.Client
}

var _ ports.Fetcher = (*PageLinks)(nil)

// NewPageLinks builds the fetcher. Options: match (href substring), limit
// (default 3), linkSelector, contentSelector.
func NewPageLinks(cfg config.SourceConfig, client *http.Client) (*PageLinks, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("pagelinks: url is required")
	}
	indexURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pagelinks: invalid url %s: %w", cfg.URL, err)
	}
	if client == nil {
		client = NewHTTPClient()
	}
	return &PageLinks{
		name:            cfg.Name,
		indexURL:        indexURL,
		match:           cfg.Options["match"],
		linkSelector:    orDefault(cfg.Options["linkSelector"], defaultLinkSelector),
		contentSelector: orDefault(cfg.Options["contentSelector"], defaultContentSelector),
		limit:           intOption(cfg.Options, "limit", 3, 50),
		country:         orDefault(cfg.Country, CountryFromURL(indexURL)),
		topic:           cfg.Topic,
		client:          client,
	}, nil
}

// Name identifies the source in logs and summaries.
func (p *PageLinks) Name() string {
	return p.name
}

// Fetch reads the index page and then each selected document page. A
// document page that fails is skipped; only an index failure fails the fetch.
func (p *PageLinks) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	index, err := p.fetchDocument(ctx, p.indexURL.String())
	if err != nil {
		return nil, err
	}

	links := p.extractLinks(index)
	items := make([]domain.RawItem, 0, len(links))
	for _, link := range links {
		if ctx.Err() != nil {
			return items, nil
		}
		doc, err := p.fetchDocument(ctx, link)
		if err != nil {
			continue
		}
		if item, ok := p.parsePage(doc, link); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (p *PageLinks) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", domain.ErrFetch, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", domain.ErrFetch, err)
	}
	return doc, nil
}

// extractLinks returns absolute, deduplicated document links in page order, capped at limit.
func (p *PageLinks) extractLinks(doc *goquery.Document) []string {
	var (
		links []string
		seen  = map[string]struct{}{}
	)
	doc.Find(p.linkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || (p.match != "" && !strings.Contains(href, p.match)) {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		abs := p.indexURL.ResolveReference(ref)
		abs.Fragment = ""
		if strings.HasSuffix(strings.ToLower(abs.Path), ".pdf") {
			return true
		}
		key := abs.String()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		links = append(links, key)
		return len(links) < p.limit
	})
	return links
}

func (p *PageLinks) parsePage(doc *goquery.Document, link string) (domain.RawItem, bool) {
	doc.Find("script, style, nav, header, footer").Remove()

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var content string
	for _, sel := range strings.Split(p.contentSelector, ",") {
		if node := doc.Find(strings.TrimSpace(sel)).First(); node.Length() > 0 {
			content = strings.Join(strings.Fields(node.Text()), " ")
			break
		}
	}
	if content == "" {
		return domain.RawItem{}, false
	}

	return domain.RawItem{
		ID:      p.name + "_" + shortHash(link),
		Title:   title,
		Content: content,
		Type:    "gazette",
		Country: p.country,
		Topic:   p.topic,
		URL:     link,
	}, true
}

// CountryFromURL infers a country from well-known publication hosts.
func CountryFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, hc := range hostCountries {
		if host == hc.host || strings.HasSuffix(host, "."+hc.host) {
			return hc.country
		}
	}
	return ""
}

func shortHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:6])
}
