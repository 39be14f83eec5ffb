// Package exitcode names the worker's process exit statuses.
package exitcode

const (
	// Success follows a Close request or the parent's exit.
	Success = 0
	// Fatal is shared by every uncaught failure and by a parent that cannot
	// be watched at all.
	Fatal = 2
)
