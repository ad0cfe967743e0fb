package extractor

import (
	"context"
	"log"

	"codescout/pkg/types"
)

// Extractor produces symbol lists from source content. Two strategies are
// selected by language availability: a structured tree-sitter parse with
// exact line ranges, and a regex fallback whose symbols are flagged
// approximate. Callers see only the symbol list; a structured-parse failure
// degrades to the fallback, never to an error.
type Extractor struct {
	// disableStructured forces the fallback path; used in tests
	disableStructured bool
}

// New creates an Extractor
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the symbols declared in content. The result is nil for
// languages with neither a grammar nor fallback patterns; that is not an
// error, the file is still chunked by size.
func (e *Extractor) Extract(ctx context.Context, content []byte, language string) []types.Symbol {
	if !e.disableStructured {
		if spec, ok := grammars[language]; ok {
			symbols, err := extractStructured(ctx, content, spec)
			if err == nil {
				return symbols
			}
			log.Printf("structured extraction failed for %s source, using fallback: %v", language, err)
		}
	}
	return extractFallback(string(content), language)
}

// Supported reports whether any extraction strategy exists for the language
func Supported(language string) bool {
	if _, ok := grammars[language]; ok {
		return true
	}
	_, ok := fallbackPatterns[language]
	return ok
}
