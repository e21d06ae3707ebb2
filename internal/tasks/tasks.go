// Package tasks contains long-running client-side operations built on the
// API client and the local cache.
package tasks

// ProgressUpdate reports incremental progress from a running task.
type ProgressUpdate struct {
	Stage   string
	Current int
	Total   int
	Message string
}
