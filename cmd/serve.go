package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheoCtla/SmartQA/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SmartQA HTTP API",
		Long: `Starts the HTTP API: POST /audit runs an audit, GET /logs streams
progress as Server-Sent Events, and /health, /metrics serve operators.
The process drains and exits on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			app, err := server.Build(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}
}
