package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
schedule: 30m
trim_tokens: true
backup_command: ["python3", "/app/github-backup.py"]
paths:
  template: /app/config.json.example
  working: /tmp/config.json
  output: /data
persisted:
  backend: file
  path: /config/config.json
  write_back: false
  watch: true
permissions:
  enabled: true
  uid: 99
  gid: 100
  dir_mode: "0775"
  file_mode: 664
metrics:
  textfile: /metrics/github_backup.prom
`
	cfg := loadFromString(t, yaml)

	if cfg.Schedule != 30*time.Minute {
		t.Errorf("schedule: got %v", cfg.Schedule)
	}
	if !cfg.TrimTokens {
		t.Error("trim_tokens: got false")
	}
	if len(cfg.BackupCommand) != 2 || cfg.BackupCommand[1] != "/app/github-backup.py" {
		t.Errorf("backup_command: got %q", cfg.BackupCommand)
	}
	if cfg.Paths.Output != "/data" {
		t.Errorf("paths.output: got %q", cfg.Paths.Output)
	}
	if cfg.Persisted.WriteBackEnabled() {
		t.Error("persisted.write_back: got enabled, want disabled")
	}
	if !cfg.Persisted.Watch {
		t.Error("persisted.watch: got false")
	}
	if cfg.Permissions.UID != 99 || cfg.Permissions.GID != 100 {
		t.Errorf("permissions ids: got %d:%d", cfg.Permissions.UID, cfg.Permissions.GID)
	}
	if os.FileMode(cfg.Permissions.DirMode) != 0o775 {
		t.Errorf("dir_mode: got %o", cfg.Permissions.DirMode)
	}
	if os.FileMode(cfg.Permissions.FileMode) != 0o664 {
		t.Errorf("file_mode: got %o", cfg.Permissions.FileMode)
	}
	if cfg.Metrics.Textfile != "/metrics/github_backup.prom" {
		t.Errorf("metrics.textfile: got %q", cfg.Metrics.Textfile)
	}
	if cfg.LockPath() != "/tmp/config.json.lock" {
		t.Errorf("LockPath(): got %q", cfg.LockPath())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Schedule != DefaultSchedule {
		t.Errorf("default schedule: got %v, want %v", cfg.Schedule, DefaultSchedule)
	}
	if cfg.Schedule != 3600*time.Second {
		t.Errorf("default schedule must be 3600s, got %v", cfg.Schedule)
	}
	if cfg.TokenEnv != "TOKEN" {
		t.Errorf("default token_env: got %q", cfg.TokenEnv)
	}
	if cfg.Paths.Output != DefaultOutputDir {
		t.Errorf("default output: got %q", cfg.Paths.Output)
	}
	if cfg.Persisted.Backend != BackendFile || cfg.Persisted.Path != DefaultPersistedPath {
		t.Errorf("default persisted: got %+v", cfg.Persisted)
	}
	if !cfg.Persisted.WriteBackEnabled() {
		t.Error("write_back should default to enabled")
	}
	if cfg.Permissions.Enabled {
		t.Error("permissions fix-up should default to disabled")
	}
	if cfg.TrimTokens {
		t.Error("trim_tokens should default to false")
	}
	if len(cfg.BackupCommand) != 1 || cfg.BackupCommand[0] != DefaultBackupCommand {
		t.Errorf("default backup_command: got %q", cfg.BackupCommand)
	}
}

func TestLoad_ScheduleEnvOverride(t *testing.T) {
	t.Setenv(EnvSchedule, "120")
	cfg := loadFromString(t, "schedule: 5h\n")
	if cfg.Schedule != 120*time.Second {
		t.Errorf("SCHEDULE override: got %v, want 2m", cfg.Schedule)
	}
}

func TestLoad_ScheduleEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "hourly"},
		{"duration syntax", "1h"},
		{"zero", "0"},
		{"negative", "-60"},
		{"overflows duration", "9223372037"},
		{"wraps to positive", "18446744074"},
		{"beyond int64", "99999999999999999999"},
		{"beyond int64 negative", "-99999999999999999999"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvSchedule, tc.value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for SCHEDULE=%q, got nil", tc.value)
			}
		})
	}
}

func TestLoad_ScheduleEnvLargestAccepted(t *testing.T) {
	t.Setenv(EnvSchedule, "9223372036")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != 9223372036*time.Second {
		t.Errorf("schedule: got %v", cfg.Schedule)
	}
}

func TestLoad_ScheduleEnvEmptyIgnored(t *testing.T) {
	t.Setenv(EnvSchedule, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule != DefaultSchedule {
		t.Errorf("schedule: got %v, want default", cfg.Schedule)
	}
}

func TestConfig_Token(t *testing.T) {
	t.Setenv("TOKEN", "a,b,c")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Token(); got != "a,b,c" {
		t.Errorf("Token(): got %q", got)
	}
}

func TestConfig_TokenCustomEnv(t *testing.T) {
	t.Setenv("GH_TOKENS", "xyz")
	cfg := loadFromString(t, "token_env: GH_TOKENS\n")
	if got := cfg.Token(); got != "xyz" {
		t.Errorf("Token(): got %q", got)
	}
}

func TestS3Config_Keys(t *testing.T) {
	t.Setenv("TEST_S3_ACCESS", "AKIA")
	t.Setenv("TEST_S3_SECRET", "shh")
	s := S3Config{AccessKeyEnv: "TEST_S3_ACCESS", SecretKeyEnv: "TEST_S3_SECRET"}
	if s.AccessKey() != "AKIA" || s.SecretKey() != "shh" {
		t.Errorf("keys: got %q / %q", s.AccessKey(), s.SecretKey())
	}
	if (S3Config{}).AccessKey() != "" {
		t.Error("AccessKey() with no env name should be empty")
	}
}

func TestLoad_S3Backend(t *testing.T) {
	cfg := loadFromString(t, `
persisted:
  backend: s3
  s3:
    endpoint: http://minio:9000
    region: us-east-1
    bucket: backups
    key: github/config.json
`)
	if cfg.Persisted.S3.Bucket != "backups" {
		t.Errorf("bucket: got %q", cfg.Persisted.S3.Bucket)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"relative output", "paths:\n  output: backups\n"},
		{"empty command", "backup_command: []\n"},
		{"unknown backend", "persisted:\n  backend: ftp\n"},
		{"s3 without bucket", "persisted:\n  backend: s3\n  s3:\n    region: eu-west-1\n"},
		{"s3 without region", "persisted:\n  backend: s3\n  s3:\n    bucket: b\n    key: k\n"},
		{"watch with s3", "persisted:\n  backend: s3\n  watch: true\n  s3:\n    region: r\n    bucket: b\n    key: k\n"},
		{"file without path", "persisted:\n  backend: file\n  path: \"\"\n"},
		{"bad mode", "permissions:\n  dir_mode: rwx\n"},
		{"negative schedule", "schedule: -1s\n"},
		{"bad uid", "permissions:\n  uid: -5\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing settings file")
	}
}

func TestLoad_NoneBackend(t *testing.T) {
	cfg := loadFromString(t, "persisted:\n  backend: none\n")
	if cfg.Persisted.Backend != BackendNone {
		t.Errorf("backend: got %q", cfg.Persisted.Backend)
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runner.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path)
}
