// Package metrics writes cycle outcomes as a Prometheus text-format file for
// the node_exporter textfile collector.
//
// Textfile implements scheduler.Observer. After each cycle it rewrites Path
// atomically (temp file + rename) with:
//   - github_backup_cycles_total{result="success|failure"}: counter
//   - github_backup_last_cycle_duration_seconds: gauge
//   - github_backup_last_cycle_timestamp_seconds: gauge, end of last cycle
//   - github_backup_last_success_timestamp_seconds: gauge, 0 until a success
//   - github_backup_tokens: gauge, tokens in the working config
//
// Families are built as client_model protos and encoded with
// prometheus/common/expfmt. A write failure is logged; metrics never affect
// the backup loop.
package metrics
