// Package config loads the runner's own settings (not the backup tool's JSON
// config, which lives in package materialize).
//
// Top-level keys of the optional YAML settings file:
//   - schedule: wait between cycles (Go duration, default 1h)
//   - token_env: env var holding the raw token list (default TOKEN)
//   - trim_tokens: strip whitespace around tokens (default false)
//   - backup_command: argv of the backup tool, config path appended
//   - paths: template, working, output and lock file locations
//   - persisted: backend (file|s3|none), path, write_back, watch, s3{...}
//   - permissions: opt-in chown/chmod of the output tree
//   - metrics: textfile path for Prometheus cycle metrics
//
// Load(path) starts from defaults(), overlays the file when path is set, then
// applies environment overrides (SCHEDULE in integer seconds) and validates.
// Secrets are never stored in the file: Token(), S3Config.AccessKey() and
// S3Config.SecretKey() resolve them from the environment variables it names.
package config
