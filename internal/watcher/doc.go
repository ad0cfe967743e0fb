// Package watcher turns bursts of filesystem events into settled
// re-index triggers.
//
// Events arrive from a Source (PollSource diffs periodic scans; tests
// inject channel-backed fakes). Each path debounces independently, so
// an editor writing the same file repeatedly fires one trigger after
// the burst ends. Matured paths coalesce into a single trigger call
// because the trigger is an incremental whole-project update anyway.
package watcher
