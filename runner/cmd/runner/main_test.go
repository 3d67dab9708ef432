package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djekl/docker-github-backup/runner/internal/backup"
	"github.com/djekl/docker-github-backup/runner/internal/lifecycle"
	"github.com/djekl/docker-github-backup/runner/internal/materialize"
)

const exampleTemplate = `{
  // copy to /config/config.json and edit
  "token": "YOUR_TOKEN",
  "directory": "~/github-backup"
}
`

// testEnv lays out a container-like filesystem under a temp dir.
type testEnv struct {
	dir       string
	template  string
	working   string
	persisted string
	output    string
	settings  string
}

func newTestEnv(t *testing.T, command []string, extra string) *testEnv {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	t.Setenv("SCHEDULE", "")
	dir := t.TempDir()
	e := &testEnv{
		dir:       dir,
		template:  filepath.Join(dir, "app", "config.json.example"),
		working:   filepath.Join(dir, "app", "config.json"),
		persisted: filepath.Join(dir, "config", "config.json"),
		output:    filepath.Join(dir, "backups"),
		settings:  filepath.Join(dir, "runner.yaml"),
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(e.template), 0o755))
	require.NoError(t, os.WriteFile(e.template, []byte(exampleTemplate), 0o644))

	cmdJSON, err := json.Marshal(command)
	require.NoError(t, err)
	settings := "schedule: 1h\n" +
		"backup_command: " + string(cmdJSON) + "\n" +
		"paths:\n" +
		"  template: " + e.template + "\n" +
		"  working: " + e.working + "\n" +
		"  output: " + e.output + "\n" +
		"persisted:\n" +
		"  backend: file\n" +
		"  path: " + e.persisted + "\n" +
		extra
	require.NoError(t, os.WriteFile(e.settings, []byte(settings), 0o600))
	return e
}

// execute runs the root command with args and returns its stdout.
func (e *testEnv) execute(ctx context.Context, args ...string) (string, error) {
	opts := &rootOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	cmd := newRootCommandWithOptions(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.settings}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestMaterializeCommand(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	t.Setenv("TOKEN", `abc,ghp_with"quote`)

	out, err := e.execute(context.Background(), "materialize", "--print")
	require.NoError(t, err)

	working := readJSON(t, e.working)
	assert.Equal(t, []any{"abc", `ghp_with"quote`}, working["tokens"])
	assert.Equal(t, e.output, working["directory"])
	assert.NotContains(t, working, "token")

	persisted := readJSON(t, e.persisted)
	assert.Equal(t, working, persisted, "reconciled config should be written back")

	assert.Contains(t, out, `"***"`)
	assert.Contains(t, out, "...uote")
	assert.NotContains(t, out, "ghp_with")
}

func TestMaterializeCommand_LegacyTokenWithoutEnv(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	t.Setenv("TOKEN", "")

	_, err := e.execute(context.Background(), "materialize")
	require.NoError(t, err)
	assert.Equal(t, []any{"YOUR_TOKEN"}, readJSON(t, e.working)["tokens"])
}

func TestMaterializeCommand_MalformedPersisted(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(e.persisted), 0o755))
	require.NoError(t, os.WriteFile(e.persisted, []byte(`{"tokens": [`), 0o600))

	_, err := e.execute(context.Background(), "materialize")
	var perr *materialize.ParseError
	require.ErrorAs(t, err, &perr)
	_, statErr := os.Stat(e.working)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "working config must not be written")
}

func TestOnceCommand_PassesWorkingConfig(t *testing.T) {
	seen := filepath.Join(t.TempDir(), "seen.json")
	e := newTestEnv(t, []string{"/bin/sh", "-c", `cp "$1" "` + seen + `"`, "github-backup"}, "")
	t.Setenv("TOKEN", "a,b,c")

	_, err := e.execute(context.Background(), "once")
	require.NoError(t, err)

	got := readJSON(t, seen)
	assert.Equal(t, []any{"a", "b", "c"}, got["tokens"])

	info, err := os.Stat(e.output)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "output directory must exist before the first cycle")
}

func TestOnceCommand_FailureIsReported(t *testing.T) {
	e := newTestEnv(t, []string{"/bin/sh", "-c", "exit 2", "github-backup"}, "")
	t.Setenv("TOKEN", "abc")

	_, err := e.execute(context.Background(), "once")
	var invErr *backup.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, 2, invErr.ExitCode)
}

func TestOnceCommand_LockHeld(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	t.Setenv("TOKEN", "abc")

	lock, err := lifecycle.AcquireLock(e.working + ".lock")
	require.NoError(t, err)
	defer lock.Release() //nolint:errcheck

	_, err = e.execute(context.Background(), "once")
	assert.ErrorIs(t, err, lifecycle.ErrLocked)
}

func TestRunCommand_FailedCycleThenGracefulStop(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	e := newTestEnv(t, []string{"/bin/sh", "-c", `touch "` + marker + `"; exit 1`, "github-backup"},
		"metrics:\n  textfile: "+filepath.Join(t.TempDir(), "github_backup.prom")+"\n")
	t.Setenv("TOKEN", "abc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := e.execute(ctx, "run")
		done <- err
	}()

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("backup tool was never invoked")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The failing cycle must not have stopped the daemon.
	select {
	case err := <-done:
		t.Fatalf("daemon exited after a failed cycle: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "shutdown must be graceful")
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop within 5s of cancellation")
	}
}

func TestApp_BeforeCycleReloadsPersisted(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	t.Setenv("TOKEN", "")

	opts := &rootOptions{configPath: e.settings, logLevel: "info", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, opts.setup())
	a, err := newApp(context.Background(), opts.cfg, opts.logger)
	require.NoError(t, err)

	lock, err := a.prepare(context.Background())
	require.NoError(t, err)
	defer lock.Release() //nolint:errcheck

	// Not stale: nothing happens.
	require.NoError(t, a.beforeCycle(context.Background()))
	assert.Equal(t, []any{"YOUR_TOKEN"}, readJSON(t, e.working)["tokens"])

	// Manual edit of the persisted copy.
	require.NoError(t, os.WriteFile(e.persisted, []byte(`{"tokens":["edited"],"custom":1}`), 0o600))
	a.stale.Store(true)
	require.NoError(t, a.beforeCycle(context.Background()))

	working := readJSON(t, e.working)
	assert.Equal(t, []any{"edited"}, working["tokens"])
	assert.Equal(t, 1.0, working["custom"])
	assert.Equal(t, e.output, working["directory"])

	// A broken edit keeps the previous working config.
	require.NoError(t, os.WriteFile(e.persisted, []byte(`{broken`), 0o600))
	a.stale.Store(true)
	assert.Error(t, a.beforeCycle(context.Background()))
	assert.Equal(t, []any{"edited"}, readJSON(t, e.working)["tokens"])
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	_, err := e.execute(context.Background(), "--log-level", "loud", "materialize")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "log-level"))
}

func TestRootCommand_InvalidSchedule(t *testing.T) {
	e := newTestEnv(t, []string{"true"}, "")
	t.Setenv("SCHEDULE", "soon")
	_, err := e.execute(context.Background(), "materialize")
	assert.Error(t, err)
}
