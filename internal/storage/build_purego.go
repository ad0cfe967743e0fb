//go:build purego
// +build purego

package storage

// Compiled with the purego tag: the pure Go SQLite driver.
//
//   go build -tags purego ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)

// dataSourceName builds the driver-specific DSN. Pragmas ride on the
// connection string so every connection in the pool gets them.
func dataSourceName(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}
