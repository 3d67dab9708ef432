package metrics

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/djekl/docker-github-backup/pkg/types"
)

// Metric names.
const (
	CyclesTotal          = "github_backup_cycles_total"
	LastCycleDuration    = "github_backup_last_cycle_duration_seconds"
	LastCycleTimestamp   = "github_backup_last_cycle_timestamp_seconds"
	LastSuccessTimestamp = "github_backup_last_success_timestamp_seconds"
	TokensConfigured     = "github_backup_tokens"
)

// Textfile accumulates cycle counters and mirrors them to Path.
type Textfile struct {
	Path   string
	Logger *slog.Logger

	mu          sync.Mutex
	success     float64
	failure     float64
	lastDur     float64
	lastEnd     float64
	lastSuccess float64
	tokens      float64
}

// NewTextfile returns a Textfile writing to path.
func NewTextfile(path string) *Textfile {
	return &Textfile{Path: path}
}

// SetTokens records the number of configured tokens and rewrites the file.
func (t *Textfile) SetTokens(n int) {
	t.mu.Lock()
	t.tokens = float64(n)
	t.mu.Unlock()
	t.flush()
}

// CycleFinished records rep and rewrites the file.
func (t *Textfile) CycleFinished(rep types.CycleReport) {
	t.mu.Lock()
	end := float64(rep.FinishedAt.Unix()) + float64(rep.FinishedAt.Nanosecond())/1e9
	switch rep.Result {
	case types.CycleSuccess:
		t.success++
		t.lastSuccess = end
	default:
		t.failure++
	}
	t.lastDur = rep.Duration().Seconds()
	t.lastEnd = end
	t.mu.Unlock()
	t.flush()
}

// Families returns the current metric families in a stable order.
func (t *Textfile) Families() []*dto.MetricFamily {
	t.mu.Lock()
	defer t.mu.Unlock()

	return []*dto.MetricFamily{
		{
			Name: ptr(CyclesTotal),
			Help: ptr("Backup tool invocations by result."),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{
				counterWithResult("failure", t.failure),
				counterWithResult("success", t.success),
			},
		},
		gauge(LastCycleDuration, "Duration of the most recent backup cycle.", t.lastDur),
		gauge(LastCycleTimestamp, "Unix time the most recent backup cycle finished.", t.lastEnd),
		gauge(LastSuccessTimestamp, "Unix time of the most recent successful backup cycle.", t.lastSuccess),
		gauge(TokensConfigured, "GitHub tokens in the working config.", t.tokens),
	}
}

// Encode renders the current families in Prometheus text format.
func (t *Textfile) Encode() ([]byte, error) {
	var buf bytes.Buffer
	for _, mf := range t.Families() {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// flush writes the file; failures are logged only.
func (t *Textfile) flush() {
	if t.Path == "" {
		return
	}
	if err := t.write(); err != nil {
		t.logger().Warn("metrics: textfile write failed", "path", t.Path, "err", err)
	}
}

func (t *Textfile) write() error {
	data, err := t.Encode()
	if err != nil {
		return err
	}
	dir := filepath.Dir(t.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), t.Path)
}

func counterWithResult(result string, v float64) *dto.Metric {
	return &dto.Metric{
		Label:   []*dto.LabelPair{{Name: ptr("result"), Value: ptr(result)}},
		Counter: &dto.Counter{Value: ptr(v)},
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}},
	}
}

func ptr[T any](v T) *T { return &v }

func (t *Textfile) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
