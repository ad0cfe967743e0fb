// Package storage persists the per-project search index in SQLite.
//
// Every project root gets its own database file under the data
// directory, managed by Registry. A database holds the indexed files,
// their symbols and chunks, the inverted term statistics BM25 scoring
// needs (per-chunk term frequencies, global document frequencies, and
// corpus totals), and optional chunk embeddings.
//
// The statistics tables are derived data and are only ever updated in
// the same transaction as the chunk rows they describe. UpsertFile and
// DeleteFile own that invariant; nothing else writes to terms or stats.
//
// Two SQLite drivers are supported via build tags: mattn/go-sqlite3 by
// default, modernc.org/sqlite with -tags purego.
package storage
