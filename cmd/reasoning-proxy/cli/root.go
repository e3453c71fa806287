// Package cli implements the reasoning-proxy command line.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	debug      bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "reasoning-proxy",
		Short: "OpenAI-compatible proxy that renders reasoning tokens as <think> blocks",
		Long: `reasoning-proxy forwards chat completions to OpenRouter (or any
OpenAI-compatible API) and wraps the model's reasoning tokens in
<think>...</think> so chat UIs can render them apart from the answer.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a config file (default $XDG_CONFIG_HOME/reasoning-proxy/config.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newModelsCmd(opts))

	return cmd
}
