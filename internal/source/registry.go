package source

import (
	"fmt"
	"sort"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/ports"
)

// Factory builds a fetcher for one configured source.
type Factory func(cfg config.SourceConfig) (ports.Fetcher, error)

// Registry keeps a mapping from source kinds to their factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, factory Factory) {
	if r.factories == nil {
		r.factories = map[string]Factory{}
	}
	r.factories[kind] = factory
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve returns a factory by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (Factory, error) {
	if factory, ok := r.factories[kind]; ok {
		return factory, nil
	}
	return nil, fmt.Errorf("source kind %s is not registered", kind)
}

// Build instantiates one fetcher per configured source, in config order.
func (r *Registry) Build(sources []config.SourceConfig) ([]ports.Fetcher, error) {
	fetchers := make([]ports.Fetcher, 0, len(sources))
	seen := map[string]struct{}{}
	for _, src := range sources {
		if _, dup := seen[src.Name]; dup {
			return nil, fmt.Errorf("source %s is configured twice", src.Name)
		}
		seen[src.Name] = struct{}{}

		factory, err := r.Resolve(src.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		fetcher, err := factory(src)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		fetchers = append(fetchers, fetcher)
	}
	return fetchers, nil
}
