package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the settings file.
const (
	DefaultSchedule      = 3600 * time.Second
	DefaultTokenEnv      = "TOKEN"
	DefaultTemplatePath  = "/app/config.json.example"
	DefaultWorkingPath   = "/app/config.json"
	DefaultPersistedPath = "/config/config.json"
	DefaultOutputDir     = "/backups"
	DefaultBackupCommand = "github-backup"
)

// Environment variables read directly by Load.
const (
	EnvSchedule = "SCHEDULE"
)

// Persisted config backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
	BackendNone = "none"
)

// Config is the runner's settings tree.
type Config struct {
	// Schedule is the wait between backup cycles.
	Schedule time.Duration `yaml:"schedule"`

	// TokenEnv names the environment variable holding the raw token list.
	TokenEnv string `yaml:"token_env"`

	// TrimTokens trims whitespace around each token and drops empty ones.
	TrimTokens bool `yaml:"trim_tokens"`

	// BackupCommand is the backup tool argv; the working config path is appended.
	BackupCommand []string `yaml:"backup_command"`

	Paths       PathsConfig       `yaml:"paths"`
	Persisted   PersistedConfig   `yaml:"persisted"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PathsConfig holds filesystem locations.
type PathsConfig struct {
	// Template is the shipped example config, read-only.
	Template string `yaml:"template"`

	// Working is the reconciled config handed to the backup tool.
	Working string `yaml:"working"`

	// Output is the backup output root forced into the config's directory field.
	Output string `yaml:"output"`

	// Lock is the single-instance lock file. Defaults to Working + ".lock".
	Lock string `yaml:"lock"`
}

// PersistedConfig configures the config copy that survives restarts.
type PersistedConfig struct {
	// Backend is one of: file | s3 | none.
	Backend string `yaml:"backend"`

	// Path is the file location when Backend == "file".
	Path string `yaml:"path"`

	// WriteBack saves the reconciled document to the persisted location.
	WriteBack *bool `yaml:"write_back"`

	// Watch re-materializes before the next cycle when the persisted file
	// changes. Only supported for the file backend.
	Watch bool `yaml:"watch"`

	S3 S3Config `yaml:"s3"`
}

// WriteBackEnabled reports whether write-back is on (default true).
func (p PersistedConfig) WriteBackEnabled() bool {
	return p.WriteBack == nil || *p.WriteBack
}

// S3Config locates the persisted config in an S3-compatible bucket.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. http://minio:9000.
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key"`

	// AccessKeyEnv and SecretKeyEnv name the environment variables holding
	// static credentials. When unset the default AWS credential chain is used.
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
}

// AccessKey returns the access key resolved from the environment.
func (s S3Config) AccessKey() string {
	if s.AccessKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.AccessKeyEnv)
}

// SecretKey returns the secret key resolved from the environment.
func (s S3Config) SecretKey() string {
	if s.SecretKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.SecretKeyEnv)
}

// PermissionsConfig is the opt-in output directory ownership fix-up.
type PermissionsConfig struct {
	Enabled  bool `yaml:"enabled"`
	UID      int  `yaml:"uid"`
	GID      int  `yaml:"gid"`
	DirMode  Mode `yaml:"dir_mode"`
	FileMode Mode `yaml:"file_mode"`
}

// MetricsConfig configures the Prometheus textfile.
type MetricsConfig struct {
	// Textfile is the output path. Empty disables metrics.
	Textfile string `yaml:"textfile"`
}

// Mode is a file mode written in octal in YAML ("0775" or "775").
type Mode os.FileMode

// UnmarshalYAML parses an octal string or number.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimPrefix(strings.TrimPrefix(node.Value, "0o"), "0O")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return fmt.Errorf("invalid file mode %q: must be octal", node.Value)
	}
	*m = Mode(v)
	return nil
}

// Token returns the raw token list from the environment.
func (c *Config) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// LockPath returns the lock file location.
func (c *Config) LockPath() string {
	if c.Paths.Lock != "" {
		return c.Paths.Lock
	}
	return c.Paths.Working + ".lock"
}

// Load reads the settings file at path (optional: "" uses defaults only),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Schedule:      DefaultSchedule,
		TokenEnv:      DefaultTokenEnv,
		BackupCommand: []string{DefaultBackupCommand},
		Paths: PathsConfig{
			Template: DefaultTemplatePath,
			Working:  DefaultWorkingPath,
			Output:   DefaultOutputDir,
		},
		Persisted: PersistedConfig{
			Backend: BackendFile,
			Path:    DefaultPersistedPath,
		},
		Permissions: PermissionsConfig{
			UID: -1,
			GID: -1,
		},
	}
}

// maxScheduleSeconds is the largest SCHEDULE that fits in a time.Duration.
const maxScheduleSeconds = math.MaxInt64 / int64(time.Second)

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) error {
	if raw, ok := os.LookupEnv(EnvSchedule); ok && raw != "" {
		secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("%s=%q: must be an integer number of seconds", EnvSchedule, raw)
		}
		if secs <= 0 {
			return fmt.Errorf("%s=%q: must be positive", EnvSchedule, raw)
		}
		if err != nil || secs > maxScheduleSeconds {
			return fmt.Errorf("%s=%q: must be at most %d seconds", EnvSchedule, raw, maxScheduleSeconds)
		}
		cfg.Schedule = time.Duration(secs) * time.Second
	}
	return nil
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Schedule <= 0 {
		return fmt.Errorf("schedule must be positive")
	}
	if len(cfg.BackupCommand) == 0 || cfg.BackupCommand[0] == "" {
		return fmt.Errorf("backup_command is required")
	}
	if cfg.Paths.Template == "" {
		return fmt.Errorf("paths.template is required")
	}
	if cfg.Paths.Working == "" {
		return fmt.Errorf("paths.working is required")
	}
	if !filepath.IsAbs(cfg.Paths.Output) {
		return fmt.Errorf("paths.output must be an absolute path, got %q", cfg.Paths.Output)
	}

	switch cfg.Persisted.Backend {
	case BackendFile:
		if cfg.Persisted.Path == "" {
			return fmt.Errorf("persisted.path is required for the file backend")
		}
	case BackendS3:
		s3 := cfg.Persisted.S3
		if s3.Bucket == "" || s3.Key == "" {
			return fmt.Errorf("persisted.s3.bucket and persisted.s3.key are required for the s3 backend")
		}
		if s3.Region == "" {
			return fmt.Errorf("persisted.s3.region is required for the s3 backend")
		}
	case BackendNone:
	default:
		return fmt.Errorf("persisted.backend: unknown backend %q", cfg.Persisted.Backend)
	}
	if cfg.Persisted.Watch && cfg.Persisted.Backend != BackendFile {
		return fmt.Errorf("persisted.watch requires the file backend")
	}

	if cfg.Permissions.UID < -1 || cfg.Permissions.GID < -1 {
		return fmt.Errorf("permissions.uid and permissions.gid must be -1 or a valid id")
	}
	return nil
}
