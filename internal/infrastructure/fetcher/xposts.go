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
	// KindXPosts fetches recent posts from the X search API.
	KindXPosts = "xposts"

	defaultXSearchURL = "https://api.x.com/2/tweets/search/recent"
	defaultXQuery     = "Mexico OR Canada OR Energy OR Mining lang:en -is:retweet"
)

type xSearchResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"data"`
}

// XPosts runs one recent-search query per fetch.
type XPosts struct {
	name       string
	url        string
	token      string
	query      string
	maxResults int
	country    string
	topic      string
	client     *http.Client
}

var _ ports.Fetcher = (*XPosts)(nil)

// NewXPosts builds the fetcher; options.query and options.maxResults (10..100) tune the search.
func NewXPosts(cfg config.SourceConfig, client *http.Client) (*XPosts, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("xposts: bearer token is required")
	}
	if client == nil {
		client = NewHTTPClient()
	}
	maxResults := intOption(cfg.Options, "maxResults", 10, 100)
	if maxResults < 10 {
		maxResults = 10
	}
	return &XPosts{
		name:       cfg.Name,
		url:        orDefault(cfg.URL, defaultXSearchURL),
		token:      cfg.Token,
		query:      orDefault(cfg.Options["query"], defaultXQuery),
		maxResults: maxResults,
		country:    cfg.Country,
		topic:      cfg.Topic,
		client:     client,
	}, nil
}

// Name identifies the source in logs and summaries.
func (x *XPosts) Name() string {
	return x.name
}

// Fetch returns one item per post, keyed x_<post id>.
func (x *XPosts) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	endpoint, err := url.Parse(x.url)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", domain.ErrFetch, err)
	}
	q := endpoint.Query()
	q.Set("query", x.query)
	q.Set("max_results", strconv.Itoa(x.maxResults))
	q.Set("tweet.fields", "created_at")
	endpoint.RawQuery = q.Encode()

	var resp xSearchResponse
	headers := map[string]string{"Authorization": "Bearer " + x.token}
	if err := doJSON(ctx, x.client, http.MethodGet, endpoint.String(), headers, nil, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(resp.Data))
	for _, post := range resp.Data {
		if post.ID == "" {
			continue
		}
		items = append(items, domain.RawItem{
			ID:          "x_" + post.ID,
			Title:       "X post",
			Content:     post.Text,
			Type:        "x",
			Country:     x.country,
			Topic:       x.topic,
			URL:         "https://x.com/i/web/status/" + post.ID,
			PublishedAt: post.CreatedAt,
		})
	}
	return items, nil
}
