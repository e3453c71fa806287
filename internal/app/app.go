package app

import (
	"github.com/rs/zerolog"

	"github.com/dvcrn/reasoning-proxy/internal/config"
	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/server"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

// NewServer creates a server wired from cfg with the given key source
func NewServer(cfg *config.Config, keys credentials.KeyFetcher, logger zerolog.Logger) *server.Server {
	client := upstream.NewClient(
		upstream.NewHTTPClient(cfg.Upstream.Timeout),
		cfg.Upstream.BaseURL,
		upstream.WithAttribution(cfg.Upstream.Referer, cfg.Upstream.Title),
		upstream.WithTimeout(cfg.Upstream.Timeout),
		upstream.WithLogger(logger),
	)

	return server.New(logger, keys, server.Options{
		Client:      client,
		AdminAPIKey: cfg.Admin.APIKey,
		ProxyAPIKey: cfg.Proxy.APIKey,
		ExtraModels: cfg.Models.Extra,
	})
}
