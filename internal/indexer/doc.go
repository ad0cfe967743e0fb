// Package indexer orchestrates the indexing pipeline: scan the
// project tree, extract symbols, build chunks, and commit everything
// per file into the project's store.
//
// Runs are incremental by content hash: unchanged files are skipped,
// vanished files are removed, and each file commits in its own
// transaction so cancellation mid-run leaves a consistent partial
// index. A per-root lock rejects concurrent runs for the same project.
//
// When an embedder is configured the indexer backfills chunk vectors
// after the lexical commit; embedding failures are logged and never
// fail the run.
package indexer
