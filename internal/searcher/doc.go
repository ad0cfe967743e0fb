// Package searcher ranks indexed chunks for free-text queries.
//
// The final score of a chunk is a weighted sum of three bounded
// components: normalized BM25 over the stored term statistics, a
// symbol-name bonus for query tokens that match the names of symbols
// overlapping the chunk, and cosine similarity between the query
// embedding and the chunk embedding when both exist. Weights and BM25
// parameters come from configuration.
//
// Ranking is deterministic: equal scores order by file path, then
// start line. Results are cached per (project, query, limit) with a
// TTL; the indexer invalidates a project's entries after mutating its
// index.
package searcher
