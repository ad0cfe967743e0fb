package extractor

import (
	"regexp"
	"strings"

	"codescout/pkg/types"
)

// declPattern matches one declaration form on a single line. The first
// capture group is the symbol name.
type declPattern struct {
	re   *regexp.Regexp
	kind types.SymbolKind
}

// fallbackPatterns holds per-language declaration regexes for languages
// without a registered grammar, and as the recovery path when structured
// parsing fails. Single-line matching misses multiline signatures and
// decorators; every symbol produced here is flagged approximate.
var fallbackPatterns = map[string][]declPattern{
	"python": {
		{regexp.MustCompile(`^\s*def (\w+)\s*\(`), types.KindFunction},
		{regexp.MustCompile(`^\s*async def (\w+)\s*\(`), types.KindFunction},
		{regexp.MustCompile(`^class (\w+)[\s:(]`), types.KindClass},
	},
	"javascript": {
		{regexp.MustCompile(`function (\w+)\s*\(`), types.KindFunction},
		{regexp.MustCompile(`const (\w+)\s*=\s*(?:async\s*)?\(`), types.KindFunction},
		{regexp.MustCompile(`class (\w+)[\s{]`), types.KindClass},
	},
	"typescript": {
		{regexp.MustCompile(`function (\w+)\s*[(<]`), types.KindFunction},
		{regexp.MustCompile(`const (\w+)\s*=\s*(?:async\s*)?\(`), types.KindFunction},
		{regexp.MustCompile(`class (\w+)[\s{<]`), types.KindClass},
		{regexp.MustCompile(`interface (\w+)[\s{<]`), types.KindInterface},
		{regexp.MustCompile(`^type (\w+)\s*=`), types.KindType},
	},
	"go": {
		{regexp.MustCompile(`^func (\w+)\s*\(`), types.KindFunction},
		{regexp.MustCompile(`^func \(\w+ \*?\w+\) (\w+)\s*\(`), types.KindMethod},
		{regexp.MustCompile(`^type (\w+) struct`), types.KindStruct},
		{regexp.MustCompile(`^type (\w+) interface`), types.KindInterface},
	},
	"rust": {
		{regexp.MustCompile(`^\s*(?:pub\s+)?fn (\w+)\s*[(<]`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:pub\s+)?struct (\w+)`), types.KindStruct},
		{regexp.MustCompile(`^\s*(?:pub\s+)?trait (\w+)`), types.KindInterface},
		{regexp.MustCompile(`^\s*(?:pub\s+)?enum (\w+)`), types.KindType},
	},
	"java": {
		{regexp.MustCompile(`(?:public|private|protected)?\s*(?:static\s+)?class (\w+)`), types.KindClass},
		{regexp.MustCompile(`(?:public|private|protected)?\s*interface (\w+)`), types.KindInterface},
	},
	"ruby": {
		{regexp.MustCompile(`^\s*def (\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*class (\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*module (\w+)`), types.KindClass},
	},
}

// extractFallback pattern-matches declarations line by line. Spans are
// approximated: a symbol extends to the line before the next declaration at
// the same or shallower indentation, or to end of file.
func extractFallback(content, language string) []types.Symbol {
	patterns, ok := fallbackPatterns[language]
	if !ok {
		return nil
	}

	lines := strings.Split(content, "\n")
	var symbols []types.Symbol

	for i, line := range lines {
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			symbols = append(symbols, types.Symbol{
				Name:        m[1],
				Kind:        p.kind,
				StartLine:   i + 1,
				EndLine:     i + 1, // extended below
				Approximate: true,
			})
			break // one symbol per line max
		}
	}

	// Extend spans to the next declaration with the same or shallower
	// indentation; nested declarations become the enclosing symbol's children
	for i := range symbols {
		indent := indentOf(lines[symbols[i].StartLine-1])
		end := len(lines)
		for j := i + 1; j < len(symbols); j++ {
			if indentOf(lines[symbols[j].StartLine-1]) <= indent {
				end = symbols[j].StartLine - 1
				break
			}
		}
		if end < symbols[i].StartLine {
			end = symbols[i].StartLine
		}
		symbols[i].EndLine = end
	}

	assignParents(symbols)
	return symbols
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
