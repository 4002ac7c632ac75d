package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrismPipeline/internal/config"
)

const indexPage = `
<html><body>
  <a href="/p1/2025/2025-09-13/html/notice-avis-eng.html">Notices</a>
  <a href="/p1/2025/2025-09-13/html/notice-avis-eng.html#top">Notices again</a>
  <a href="/p1/2025/2025-09-13/pdf/g1-15937.pdf">PDF</a>
  <a href="/p1/2025/2025-09-06/html/reg1-eng.html">Regulations</a>
  <a href="/about.html">About</a>
  <a href="/p1/2025/2025-08-30/html/reg2-eng.html">Older</a>
</body></html>`

const noticePage = `
<html><head><title>Notice | Canada Gazette</title><script>var x = 1;</script></head>
<body><nav>menu</nav><main><h1>Order amending the Electricity Regulations</h1>
<p>The Minister proposes a reform of  grid
rules.</p></main><footer>footer</footer></body></html>`

func gazetteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/index", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(indexPage))
	})
	mux.HandleFunc("/p1/2025/2025-09-13/html/notice-avis-eng.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(noticePage))
	})
	mux.HandleFunc("/p1/2025/2025-09-06/html/reg1-eng.html", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestPageLinksFetch(t *testing.T) {
	t.Parallel()

	server := gazetteServer(t)
	defer server.Close()

	f, err := NewPageLinks(config.SourceConfig{
		Name:    "gazette",
		URL:     server.URL + "/index",
		Country: "Canada",
		Options: map[string]string{"match": "/html/", "limit": "2"},
	}, server.Client())
	require.NoError(t, err)

	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.True(t, strings.HasPrefix(item.ID, "gazette_"))
	assert.Equal(t, "Order amending the Electricity Regulations", item.Title)
	assert.Equal(t, "Order amending the Electricity Regulations The Minister proposes a reform of grid rules.", item.Content)
	assert.Equal(t, "gazette", item.Type)
	assert.Equal(t, "Canada", item.Country)
	assert.Equal(t, server.URL+"/p1/2025/2025-09-13/html/notice-avis-eng.html", item.URL)
}

func TestPageLinksIDsAreStable(t *testing.T) {
	t.Parallel()

	server := gazetteServer(t)
	defer server.Close()

	f, err := NewPageLinks(config.SourceConfig{Name: "gazette", URL: server.URL + "/index", Options: map[string]string{"match": "/html/"}}, server.Client())
	require.NoError(t, err)

	first, err := f.Fetch(context.Background())
	require.NoError(t, err)
	second, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexPage))
	require.NoError(t, err)

	base, _ := url.Parse("https://gazette.gc.ca/rp-pr/p1/2025/index-eng.html")
	p := &PageLinks{indexURL: base, match: "/html/", linkSelector: defaultLinkSelector, limit: 5}

	assert.Equal(t, []string{
		"https://gazette.gc.ca/p1/2025/2025-09-13/html/notice-avis-eng.html",
		"https://gazette.gc.ca/p1/2025/2025-09-06/html/reg1-eng.html",
		"https://gazette.gc.ca/p1/2025/2025-08-30/html/reg2-eng.html",
	}, p.extractLinks(doc))
}

func TestPageLinksIndexFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	f, err := NewPageLinks(config.SourceConfig{Name: "dof", URL: server.URL}, server.Client())
	require.NoError(t, err)
	_, err = f.Fetch(context.Background())
	assert.Error(t, err)

	_, err = NewPageLinks(config.SourceConfig{Name: "dof"}, nil)
	assert.Error(t, err)
}

func TestCountryFromURL(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]string{
		"https://gazette.gc.ca/rp-pr/p1/2025/index-eng.html": "Canada",
		"https://www.ourcommons.ca/documentviewer/en":        "Canada",
		"https://www.dof.gob.mx/":                            "Mexico",
		"https://api.congress.gov/v3/bill":                   "USA",
		"https://example.org/gov.dof.gob.mx":                 "",
	} {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, CountryFromURL(u), raw)
	}
}
