package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/movie-harvester/internal/server"
)

// newServeCmd creates the 'serve' subcommand.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the run workers",
		Long: `Starts the HTTP API on the configured port. Runs submitted to /v1/runs are
queued and executed by a fixed pool of runner workers; completion events are
published to Pub/Sub when a topic is configured.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := server.Build(cmd.Context(), e.cfg, e.logger)
			if err != nil {
				return fmt.Errorf("build server: %w", err)
			}
			if err := srv.Run(cmd.Context()); err != nil {
				return fmt.Errorf("run server: %w", err)
			}
			return nil
		},
	}
}
