// Package extractor turns file content into symbols, chunks, and term
// statistics.
//
// Symbol extraction is polymorphic over two strategies. Languages with a
// registered tree-sitter grammar (Go, Python, JavaScript, TypeScript) get a
// structured parse with exact line ranges and nesting; everything else, and
// any file the structured parser chokes on, goes through per-language regex
// declaration patterns whose symbols are flagged Approximate. Callers never
// see which strategy ran.
//
// Chunking packs boundary units (top-level symbol spans and blank-line
// separated blocks) into chunks under a token budget. A unit that alone
// exceeds the budget is split at line granularity with a trailing-line
// overlap carried into the next chunk as context.
//
// The tokenizer in this package is the single normalization authority:
// indexing and querying both go through Tokenize, so a query term matches
// exactly the terms counted at index time.
package extractor
