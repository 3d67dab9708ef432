package backup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// DefaultCommand is the backup tool invoked when none is configured.
var DefaultCommand = []string{"github-backup"}

// InvocationError reports a failed backup tool run.
type InvocationError struct {
	Command string

	// ExitCode is the tool's exit status, or -1 if it never started or was
	// terminated by a signal.
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("backup: %s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("backup: %s: %v", e.Command, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Runner invokes the backup tool.
type Runner struct {
	// Command is the argv prefix; the config path is appended.
	Command []string

	// Dir is the working directory of the subprocess. Empty inherits ours.
	Dir string

	// Env, if non-nil, replaces the subprocess environment.
	Env []string

	Logger *slog.Logger
}

// Run executes the backup tool against configPath and waits for it to exit.
// ctx is only consulted before start; see package doc.
func (r *Runner) Run(ctx context.Context, configPath string) error {
	argv := r.Command
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	name := argv[0]
	if err := ctx.Err(); err != nil {
		return &InvocationError{Command: name, ExitCode: -1, Err: err}
	}

	log := r.logger().With("tool", name)

	args := append(append([]string(nil), argv[1:]...), configPath)
	cmd := exec.Command(name, args...) //nolint:gosec // operator-configured command
	cmd.Dir = r.Dir
	detach(cmd)
	if r.Env != nil {
		cmd.Env = r.Env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &InvocationError{Command: name, ExitCode: -1, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &InvocationError{Command: name, ExitCode: -1, Err: err}
	}

	log.Debug("backup: starting", "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return &InvocationError{Command: name, ExitCode: -1, Err: err}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go forward(&wg, stdout, log, slog.LevelInfo, "stdout")
	go forward(&wg, stderr, log, slog.LevelWarn, "stderr")
	// Pipes must be drained before Wait closes them.
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &InvocationError{Command: name, ExitCode: exitErr.ExitCode(), Err: err}
		}
		return &InvocationError{Command: name, ExitCode: -1, Err: err}
	}
	log.Debug("backup: finished", "pid", cmd.ProcessState.Pid())
	return nil
}

// forward logs each line read from rd until EOF.
func forward(wg *sync.WaitGroup, rd io.Reader, log *slog.Logger, level slog.Level, stream string) {
	defer wg.Done()
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		log.Log(context.Background(), level, "backup: output", "stream", stream, "line", line)
	}
	if err := sc.Err(); err != nil {
		log.Warn("backup: output read failed", "stream", stream, "err", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, rd)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
