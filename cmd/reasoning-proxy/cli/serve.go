package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvcrn/reasoning-proxy/internal/app"
	"github.com/dvcrn/reasoning-proxy/internal/config"
	"github.com/dvcrn/reasoning-proxy/internal/credentials"
	"github.com/dvcrn/reasoning-proxy/internal/logger"
	"github.com/dvcrn/reasoning-proxy/internal/upstream"
)

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagUpstream,
	config.FlagTimeout,
	config.FlagCredentials,
	config.FlagLogLevel,
	config.FlagLogFormat,
}

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(root.configPath)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			if root.debug {
				cfg.Log.Level = "debug"
			}

			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			keys, err := credentials.New(credentials.Options{
				Source:  cfg.Credentials.Source,
				Path:    cfg.Credentials.Path,
				Service: cfg.Credentials.KeychainService,
				Logger:  log,
			})
			if err != nil {
				return err
			}
			if closer, ok := keys.(interface{ Close() }); ok {
				defer closer.Close()
			}

			validateKeyAtStartup(keys, cfg.Credentials.Source, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, app.NewServer(cfg, keys, log), log)
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstream)
	config.AddDurationFlag(cmd, config.ServeFlags, config.FlagTimeout)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagCredentials)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLogLevel)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLogFormat)

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, handler http.Handler, log zerolog.Logger) error {
	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("listen", cfg.Server.Listen).
			Str("upstream", cfg.Upstream.BaseURL).
			Dur("timeout", cfg.Upstream.Timeout).
			Msg("Starting server")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func validateKeyAtStartup(keys credentials.KeyFetcher, source string, log zerolog.Logger) {
	key, err := keys.GetAPIKey()
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("No upstream API key available yet")
		return
	}
	log.Info().
		Str("source", source).
		Str("key_preview", upstream.KeyPreview(key)).
		Msg("Upstream API key loaded")
}
