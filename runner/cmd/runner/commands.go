package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/djekl/docker-github-backup/runner/internal/configdoc"
	"github.com/djekl/docker-github-backup/runner/internal/lifecycle"
	"github.com/djekl/docker-github-backup/runner/internal/tokens"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Materialize the config and run backups every schedule interval (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), opts)
		},
	}
}

func newOnceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Materialize the config and run a single backup cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			return a.runOnce(cmd.Context())
		},
	}
}

func newMaterializeCommand(opts *rootOptions) *cobra.Command {
	var printDoc bool
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Write the working config without running a backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			doc, err := a.materialize(cmd.Context())
			if err != nil {
				return err
			}
			if !printDoc {
				return nil
			}
			out, err := redacted(doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().BoolVar(&printDoc, "print", false, "Print the working config with tokens redacted")
	return cmd
}

// runDaemon supervises the scheduler until a termination signal arrives.
func runDaemon(ctx context.Context, opts *rootOptions) error {
	a, err := newApp(ctx, opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	sup := &lifecycle.Supervisor{Logger: opts.logger}
	return sup.Run(ctx, a.serve)
}

// redacted serializes doc with each token reduced to its last four characters.
func redacted(doc *configdoc.Document) ([]byte, error) {
	raw, err := doc.Marshal()
	if err != nil {
		return nil, err
	}
	masked, err := configdoc.Parse(raw)
	if err != nil {
		return nil, err
	}
	toks, err := masked.Tokens()
	if err != nil {
		return nil, err
	}
	for i, tok := range toks {
		toks[i] = tokens.Redact(tok)
	}
	rendered, err := tokens.Render(toks)
	if err != nil {
		return nil, err
	}
	if err := masked.SetRaw(configdoc.KeyTokens, rendered); err != nil {
		return nil, err
	}
	return masked.Marshal()
}
