// Package scheduler drives the backup cycle: invoke the backup tool, wait a
// fixed interval, repeat.
//
// States: Idle → Invoking (immediately on Run) → Waiting (after the invocation
// returns, whatever its outcome) → Invoking (after Interval) ... and any state
// → Cancelled once ctx is done. Cancelled is terminal.
//
// Invocations are strictly sequential. A failed invocation is logged, reported
// to observers and otherwise ignored; only cancellation ends Run.
//
// Shutdown policy: the invoke function is called with a context that does not
// inherit ctx's cancellation, so a backup already in flight runs to completion
// instead of being killed mid-write. Waiting is interrupted immediately.
package scheduler
