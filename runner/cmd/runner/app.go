package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/djekl/docker-github-backup/runner/internal/backup"
	"github.com/djekl/docker-github-backup/runner/internal/config"
	"github.com/djekl/docker-github-backup/runner/internal/configdoc"
	"github.com/djekl/docker-github-backup/runner/internal/docstore"
	"github.com/djekl/docker-github-backup/runner/internal/lifecycle"
	"github.com/djekl/docker-github-backup/runner/internal/materialize"
	"github.com/djekl/docker-github-backup/runner/internal/metrics"
	"github.com/djekl/docker-github-backup/runner/internal/outputdir"
	"github.com/djekl/docker-github-backup/runner/internal/scheduler"
)

// app wires the runner's components from settings.
type app struct {
	cfg *config.Config
	log *slog.Logger

	materializer *materialize.Materializer
	persisted    *docstore.FileStore // nil unless the file backend is used
	runner       *backup.Runner
	preparer     *outputdir.Preparer
	metrics      *metrics.Textfile

	stale atomic.Bool
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if log == nil {
		log = slog.Default()
	}
	a := &app{cfg: cfg, log: log}

	persisted, err := a.persistedStore(ctx)
	if err != nil {
		return nil, err
	}

	a.materializer = &materialize.Materializer{
		Template:   docstore.NewFileStore(cfg.Paths.Template),
		Persisted:  persisted,
		Working:    docstore.NewFileStore(cfg.Paths.Working),
		Directory:  cfg.Paths.Output,
		WriteBack:  cfg.Persisted.WriteBackEnabled(),
		TrimTokens: cfg.TrimTokens,
		Logger:     log,
	}
	a.runner = &backup.Runner{Command: cfg.BackupCommand, Logger: log}
	a.preparer = &outputdir.Preparer{
		Policy: outputdir.Policy{
			Enabled:  cfg.Permissions.Enabled,
			UID:      cfg.Permissions.UID,
			GID:      cfg.Permissions.GID,
			DirMode:  os.FileMode(cfg.Permissions.DirMode),
			FileMode: os.FileMode(cfg.Permissions.FileMode),
		},
		Logger: log,
	}
	if cfg.Metrics.Textfile != "" {
		a.metrics = metrics.NewTextfile(cfg.Metrics.Textfile)
		a.metrics.Logger = log
	}
	return a, nil
}

// persistedStore builds the configured persisted backend. A nil store means
// persistence is disabled.
func (a *app) persistedStore(ctx context.Context) (docstore.Store, error) {
	p := a.cfg.Persisted
	switch p.Backend {
	case config.BackendFile:
		a.persisted = docstore.NewFileStore(p.Path)
		a.persisted.Logger = a.log
		return a.persisted, nil
	case config.BackendS3:
		client, err := docstore.NewS3Client(ctx, docstore.S3Options{
			Endpoint:  p.S3.Endpoint,
			Region:    p.S3.Region,
			AccessKey: p.S3.AccessKey(),
			SecretKey: p.S3.SecretKey(),
		})
		if err != nil {
			return nil, err
		}
		return &docstore.S3Store{Client: client, Bucket: p.S3.Bucket, Key: p.S3.Key}, nil
	default:
		return nil, nil
	}
}

// materialize writes the working config from the current sources.
func (a *app) materialize(ctx context.Context) (*configdoc.Document, error) {
	doc, err := a.materializer.Materialize(ctx, materialize.Overrides{Tokens: a.cfg.Token()})
	if err != nil {
		return nil, err
	}
	if a.metrics != nil {
		toks, _ := doc.Tokens()
		a.metrics.SetTokens(len(toks))
	}
	return doc, nil
}

// prepare runs the startup steps shared by serve and runOnce. The returned
// lock must be released by the caller.
func (a *app) prepare(ctx context.Context) (*lifecycle.Lock, error) {
	lock, err := lifecycle.AcquireLock(a.cfg.LockPath())
	if err != nil {
		return nil, err
	}
	if _, err := a.preparer.Prepare(a.cfg.Paths.Output); err != nil {
		lock.Release() //nolint:errcheck
		return nil, err
	}
	if _, err := a.materialize(ctx); err != nil {
		lock.Release() //nolint:errcheck
		return nil, err
	}
	return lock, nil
}

// invoke runs the backup tool once against the working config.
func (a *app) invoke(ctx context.Context) error {
	return a.runner.Run(ctx, a.cfg.Paths.Working)
}

// beforeCycle re-materializes when the persisted file changed since the last
// cycle. On failure the previous working config stays in place.
func (a *app) beforeCycle(ctx context.Context) error {
	if !a.stale.Swap(false) {
		return nil
	}
	a.log.Info("persisted config changed, re-materializing")
	if _, err := a.materialize(ctx); err != nil {
		return fmt.Errorf("reload persisted config: %w", err)
	}
	return nil
}

// serve is the daemon body run under the lifecycle supervisor.
func (a *app) serve(ctx context.Context) error {
	lock, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	if a.cfg.Persisted.Watch && a.persisted != nil {
		go func() {
			if err := a.persisted.Watch(ctx, func() { a.stale.Store(true) }); err != nil {
				a.log.Error("persisted config watcher stopped", "err", err)
			}
		}()
	}

	s := scheduler.New(a.cfg.Schedule, a.invoke)
	s.BeforeCycle = a.beforeCycle
	s.Logger = a.log
	if a.metrics != nil {
		s.Observers = append(s.Observers, a.metrics)
	}

	a.log.Info("github-backup-runner started",
		"schedule", a.cfg.Schedule.String(),
		"command", a.cfg.BackupCommand,
		"lock", lock.Path(),
	)
	return s.Run(ctx)
}

// runOnce performs startup and a single cycle, returning the cycle's error.
func (a *app) runOnce(ctx context.Context) error {
	lock, err := a.prepare(ctx)
	if err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	// The scheduler stops before its first wait because the invocation
	// cancels onceCtx on return.
	onceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var cycleErr error
	s := scheduler.New(a.cfg.Schedule, func(runCtx context.Context) error {
		defer cancel()
		cycleErr = a.invoke(runCtx)
		return cycleErr
	})
	s.Logger = a.log
	if a.metrics != nil {
		s.Observers = append(s.Observers, a.metrics)
	}
	_ = s.Run(onceCtx)
	return cycleErr
}
