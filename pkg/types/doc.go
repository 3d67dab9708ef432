// Package types defines Go types shared between the runner's scheduler and
// its observers (metrics, logging). They describe the outcome of one backup
// cycle independently of how it is reported.
package types
