package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ForcedExitCode is the exit status used when a second signal arrives.
const ForcedExitCode = 1

// DefaultSignals are the signals that request shutdown.
var DefaultSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Supervisor runs a function until it returns or a termination signal arrives.
type Supervisor struct {
	Signals []os.Signal
	Logger  *slog.Logger

	// injectable for tests
	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
	exit   func(code int)
}

// Run calls fn with a context cancelled on the first signal. A return of
// context.Canceled after shutdown was requested is treated as success.
func (s *Supervisor) Run(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	signals := s.Signals
	if len(signals) == 0 {
		signals = DefaultSignals
	}
	notify, stop, exit := s.notify, s.stop, s.exit
	if notify == nil {
		notify = signal.Notify
	}
	if stop == nil {
		stop = signal.Stop
	}
	if exit == nil {
		exit = os.Exit
	}
	log := s.logger()

	sigs := make(chan os.Signal, 2)
	notify(sigs, signals...)
	defer stop(sigs)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigs:
			log.Info("lifecycle: shutdown requested, waiting for in-flight backup to finish", "signal", sig.String())
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigs:
			log.Warn("lifecycle: second signal received, forcing exit", "signal", sig.String(), "code", ForcedExitCode)
			exit(ForcedExitCode)
		case <-done:
		}
	}()

	err := fn(ctx)
	close(done)

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	if err == nil {
		log.Info("lifecycle: shutdown complete")
	}
	return err
}

func (s *Supervisor) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
