// Package types provides shared type definitions for the codescout engine.
//
// This package defines domain types used across multiple components:
// symbols, chunks, and search results.
//
// # Core Types
//
// Symbol represents a named code construct (function, method, class, ...)
// extracted from source code:
//
//	symbol := &types.Symbol{
//	    Name:      "authenticate",
//	    Kind:      types.KindFunction,
//	    StartLine: 5,
//	    EndLine:   20,
//	}
//
// Symbols produced by the regex fallback extractor are flagged Approximate;
// callers that care about positional confidence can filter on it, everyone
// else treats the two extraction strategies identically.
//
// Chunk represents a contiguous line-range slice of a file together with its
// term-frequency map:
//
//	chunk := &types.Chunk{
//	    StartLine: 1,
//	    EndLine:   42,
//	    Content:   text,
//	    Terms:     termFreqs,
//	}
//
// Chunks partition a file's lines; the only duplication between neighboring
// chunks is the ContextBefore text carried across a hard split.
//
// # Search Results
//
// SearchResult combines a chunk with its blended relevance score and the
// per-signal breakdown:
//
//	result := &types.SearchResult{
//	    ChunkID: 123,
//	    Rank:    1,
//	    Score:   1.37,
//	}
//
// # Validation
//
// All domain types implement validation methods to ensure data integrity:
//
//	if err := symbol.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package types
