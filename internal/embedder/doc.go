// Package embedder generates vector embeddings for code chunks.
//
// Providers are selected by configuration: openai (hosted API), ollama
// (local server), and local (deterministic hash vectors, no network).
// Embeddings are strictly optional; a nil Embedder means the rest of
// the system runs lexical-only, and provider failures are reported to
// callers who are expected to log and degrade rather than fail the
// operation that needed the vector.
//
// All providers share an LRU cache keyed by content hash and the
// network-backed ones retry with exponential backoff.
package embedder
