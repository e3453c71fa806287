//go:build js && wasm

package main

import (
	"github.com/syumai/workers"

	"github.com/dvcrn/reasoning-proxy/internal/app"
	"github.com/dvcrn/reasoning-proxy/internal/config"
	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/logger"
)

func main() {
	log := logger.New("info", logger.FormatJSON)

	log.Info().Str("namespace", credentials.KVNamespace).Msg("Using Cloudflare KV key store")
	store, err := credentials.NewCloudflareKVStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Cloudflare KV store")
	}

	srv := app.NewServer(config.Default(), store, log)

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
