//go:build !purego
// +build !purego

package storage

// Compiled by default: the cgo SQLite driver.
//
//   go build ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)

// dataSourceName builds the driver-specific DSN. Pragmas ride on the
// connection string so every connection in the pool gets them.
func dataSourceName(path string) string {
	return "file:" + path + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_synchronous=NORMAL"
}
