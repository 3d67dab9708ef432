// Package backup runs the external GitHub backup tool for one cycle.
//
// Runner.Run executes Command with the working config path appended as the
// final argument and forwards each line the tool prints to the logger
// (stdout at info, stderr at warn). A tool that cannot be started, or exits
// non-zero, yields an *InvocationError carrying the exit code.
//
// The subprocess is not tied to context cancellation, and on unix it runs in
// its own process group so a Ctrl-C delivered to the runner's foreground
// group does not reach it. A backup that is already fetching finishes, and
// no repository is left half-written on shutdown.
package backup
