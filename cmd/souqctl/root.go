package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/souq/internal/config"
	logpkg "github.com/kailas-cloud/souq/internal/logger"
)

type rootOptions struct {
	env string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "souqctl",
		Short:         "Manage the souq catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")

	cmd.AddCommand(
		newIndexCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newSearchCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return config.Config{}, nil, err //nolint:wrapcheck // already descriptive
	}
	logger, err := logpkg.NewLogger(o.env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, err //nolint:wrapcheck // already descriptive
	}
	return cfg, logger, nil
}
