package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

type namedFetcher struct{ name string }

func (f namedFetcher) Name() string { return f.name }

func (f namedFetcher) Fetch(context.Context) ([]domain.RawItem, error) { return nil, nil }

func stubFactory(cfg config.SourceConfig) (ports.Fetcher, error) {
	if cfg.URL == "bad" {
		return nil, errors.New("bad url")
	}
	return namedFetcher{name: cfg.Name}, nil
}

func TestBuildKeepsConfigOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register("stub", stubFactory)
	reg.Register("other", stubFactory)

	fetchers, err := reg.Build([]config.SourceConfig{
		{Name: "b", Kind: "stub"},
		{Name: "a", Kind: "other"},
	})
	require.NoError(t, err)
	require.Len(t, fetchers, 2)
	assert.Equal(t, "b", fetchers[0].Name())
	assert.Equal(t, "a", fetchers[1].Name())
	assert.Equal(t, []string{"other", "stub"}, reg.Kinds())
}

func TestBuildErrors(t *testing.T) {
	reg := NewRegistry()
	reg.Register("stub", stubFactory)

	_, err := reg.Build([]config.SourceConfig{{Name: "x", Kind: "rss"}})
	assert.ErrorContains(t, err, "source kind rss is not registered")

	_, err = reg.Build([]config.SourceConfig{{Name: "x", Kind: "stub", URL: "bad"}})
	assert.ErrorContains(t, err, "bad url")

	_, err = reg.Build([]config.SourceConfig{{Name: "x", Kind: "stub"}, {Name: "x", Kind: "stub"}})
	assert.ErrorContains(t, err, "configured twice")
}
