package fetcher

import (
	"net/http"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/source"
)

// Register adds every built-in fetcher kind to reg, sharing client.
func Register(reg *source.Registry, client *http.Client) {
	reg.Register(KindTranscripts, func(cfg config.SourceConfig) (ports.Fetcher, error) {
		return NewTranscripts(cfg, client)
	})
	reg.Register(KindFederalRegister, func(cfg config.SourceConfig) (ports.Fetcher, error) {
		return NewFederalRegister(cfg, client)
	})
	reg.Register(KindXPosts, func(cfg config.SourceConfig) (ports.Fetcher, error) {
		return NewXPosts(cfg, client)
	})
	reg.Register(KindPageLinks, func(cfg config.SourceConfig) (ports.Fetcher, error) {
		return NewPageLinks(cfg, client)
	})
}
