package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvcrn/reasoning-proxy/internal/config"
	"github.com/dvcrn/reasoning-proxy/internal/reasoning"
	"github.com/dvcrn/reasoning-proxy/internal/server"
)

func newModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model ids the proxy exposes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			for _, id := range server.ModelIDs(cfg.Models.Extra) {
				fmt.Fprintln(cmd.OutOrStdout(), reasoning.RoutingPrefix+id)
			}
			return nil
		},
	}
}
