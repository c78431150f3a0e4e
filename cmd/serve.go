// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/internal/api"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

func newServeCmd(state *cliState) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for tee-time discovery and booking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			components, err := state.factory.Create(ctx, state.cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}

			handlers := api.NewHandlers(logger, components.APIDeps())
			server := api.NewServer(state.cfg, logger, handlers, components.Shutdown)

			logger.Info("Starting API server.", zap.String("addr", state.cfg.Server().ListenAddr))
			return server.Run(ctx)
		},
	}

	serveCmd.Flags().String("listen", "", "address to listen on (overrides server.listen_addr)")
	_ = state.v.BindPFlag("server.listen_addr", serveCmd.Flags().Lookup("listen"))
	return serveCmd
}
