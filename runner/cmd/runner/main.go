// Command github-backup-runner keeps a GitHub backup up to date inside a
// container: it reconciles the backup tool's JSON config from the shipped
// template, the persisted copy and the TOKEN environment variable, then runs
// the tool every SCHEDULE seconds until SIGINT or SIGTERM.
package main

import (
	"log/slog"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		slog.Error("github-backup-runner: fatal", "err", err)
		os.Exit(1)
	}
}
