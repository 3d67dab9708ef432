// Package lifecycle owns process-level concerns of the runner: termination
// signals and the single-instance lock.
//
// Supervisor.Run hands fn a context that is cancelled on the first SIGINT or
// SIGTERM. The scheduler ends its wait as soon as that happens; a backup
// invocation already running is allowed to finish (it is not killed), after
// which fn returns and Run reports a clean shutdown (nil, exit status 0).
// A second signal while shutting down exits immediately with status 1
// without further cleanup.
//
// AcquireLock takes a non-blocking exclusive flock so two runners never back
// up into the same working config and output directory at once.
package lifecycle
