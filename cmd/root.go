// Package cmd defines the smartqa command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/config"
	"github.com/TheoCtla/SmartQA/internal/logging"
)

type envKeyType string

const envKey envKeyType = "env"

// cliEnv carries what every subcommand needs once flags are parsed.
type cliEnv struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "smartqa",
		Short: "Pre-delivery quality audit for French small-business websites.",
		Long: `smartqa crawls a website, runs a six-stage language-model review
(spelling, legal pages, content coherence, links, SEO metadata, go/no-go
synthesis), verifies external links over HTTP, and produces a consolidated
report. Run it as an HTTP service with "serve" or audit a single site with
"audit".`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &cliEnv{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveEnv(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); SMARTQA_* env vars override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuditCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*cliEnv, error) {
	rt, ok := ctx.Value(envKey).(*cliEnv)
	if !ok || rt == nil {
		return nil, errors.New("command environment not initialized")
	}
	return rt, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
