package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/djekl/docker-github-backup/runner/internal/config"
)

// rootOptions carries persistent flag values to subcommands.
type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithOptions(&rootOptions{})
}

func newRootCommandWithOptions(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "github-backup-runner",
		Short:         "Run github-backup on a fixed schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("RUNNER_CONFIG"), "Runner settings file (YAML)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newOnceCommand(opts))
	rootCmd.AddCommand(newMaterializeCommand(opts))

	return rootCmd
}

// setup initialises logging and loads settings.
func (o *rootOptions) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", o.logLevel, err)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	slog.SetDefault(o.logger)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger.Info("config loaded",
		"settings", o.configPath,
		"schedule", cfg.Schedule.String(),
		"template", cfg.Paths.Template,
		"working", cfg.Paths.Working,
		"output", cfg.Paths.Output,
		"persisted_backend", cfg.Persisted.Backend,
		"token_env_set", cfg.Token() != "",
	)
	return nil
}
