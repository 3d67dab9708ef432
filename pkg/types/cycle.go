package types

import "time"

// CycleResult is the outcome of a single backup cycle.
type CycleResult string

const (
	CycleSuccess CycleResult = "success"
	CycleFailure CycleResult = "failure"
)

// CycleReport describes one completed invocation of the backup tool.
type CycleReport struct {
	// ID uniquely identifies the cycle in logs.
	ID string

	// Seq is the 1-based cycle number since process start.
	Seq int

	StartedAt  time.Time
	FinishedAt time.Time
	Result     CycleResult

	// Err is the invocation error when Result is CycleFailure.
	Err error
}

// Duration returns how long the invocation ran.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
