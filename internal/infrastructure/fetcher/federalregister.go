package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	// KindFederalRegister fetches the newest documents from the Federal Register API.
	KindFederalRegister = "federalregister"

	defaultFederalRegisterURL = "https://www.federalregister.gov/api/v1/documents.json"
)

var federalRegisterFields = []string{"document_number", "title", "abstract", "html_url", "publication_date"}

type federalRegisterResponse struct {
	Results []struct {
		DocumentNumber  string `json:"document_number"`
		Title           string `json:"title"`
		Abstract        string `json:"abstract"`
		HTMLURL         string `json:"html_url"`
		PublicationDate string `json:"publication_date"`
	} `json:"results"`
}

// FederalRegister lists the newest Federal Register documents with their abstracts.
type FederalRegister struct {
	name    string
	url     string
	perPage int
	country string
	topic   string
	client  *http.Client
}

var _ ports.Fetcher = (*FederalRegister)(nil)

// NewFederalRegister builds the fetcher; options.perPage bounds the page size (default 10, max 100).
func NewFederalRegister(cfg config.SourceConfig, client *http.Client) (*FederalRegister, error) {
	if client == nil {
		client = NewHTTPClient()
	}
	return &FederalRegister{
		name:    cfg.Name,
		url:     orDefault(cfg.URL, defaultFederalRegisterURL),
		perPage: intOption(cfg.Options, "perPage", 10, 100),
		country: orDefault(cfg.Country, "USA"),
		topic:   cfg.Topic,
		client:  client,
	}, nil
}

// Name identifies the source in logs and summaries.
func (f *FederalRegister) Name() string {
	return f.name
}

// Fetch returns one item per document; documents without an abstract fall back to the title.
func (f *FederalRegister) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	endpoint, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", domain.ErrFetch, err)
	}
	q := endpoint.Query()
	q.Set("per_page", strconv.Itoa(f.perPage))
	q.Set("order", "newest")
	for _, field := range federalRegisterFields {
		q.Add("fields[]", field)
	}
	endpoint.RawQuery = q.Encode()

	var resp federalRegisterResponse
	if err := doJSON(ctx, f.client, http.MethodGet, endpoint.String(), nil, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if doc.DocumentNumber == "" {
			continue
		}
		published, _ := time.Parse(time.DateOnly, doc.PublicationDate)
		items = append(items, domain.RawItem{
			ID:          "fr_" + doc.DocumentNumber,
			Title:       doc.Title,
			Content:     orDefault(doc.Abstract, doc.Title),
			Type:        "register",
			Country:     f.country,
			Topic:       f.topic,
			URL:         doc.HTMLURL,
			PublishedAt: published,
		})
	}
	return items, nil
}
