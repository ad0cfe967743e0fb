package extractor

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"codescout/pkg/types"
)

// extractStructured parses the source with the language's tree-sitter
// grammar and collects symbol definitions with exact line ranges.
// Returns an error when the grammar cannot produce a usable tree; the
// caller falls back to the regex extractor.
func extractStructured(ctx context.Context, content []byte, spec *languageSpec) ([]types.Symbol, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(spec.language)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(spec.query), spec.language)
	if err != nil {
		return nil, fmt.Errorf("query compile failed: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var symbols []types.Symbol
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}

		var symbolNode *sitter.Node
		var name string
		for _, cap := range m.Captures {
			switch q.CaptureNameForId(cap.Index) {
			case "symbol":
				symbolNode = cap.Node
			case "name":
				name = cap.Node.Content(content)
			}
		}
		if symbolNode == nil || name == "" {
			continue
		}

		symbols = append(symbols, types.Symbol{
			Name:      name,
			Kind:      refineKind(symbolNode),
			StartLine: int(symbolNode.StartPoint().Row) + 1,
			EndLine:   int(symbolNode.EndPoint().Row) + 1,
		})
	}

	symbols = dedupSymbols(symbols)
	assignParents(symbols)
	return symbols, nil
}

// refineKind resolves a node's symbol kind, distinguishing Go struct and
// interface declarations from plain type aliases
func refineKind(node *sitter.Node) types.SymbolKind {
	if node.Type() == "type_declaration" {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			spec := node.NamedChild(i)
			if spec.Type() != "type_spec" {
				continue
			}
			for j := 0; j < int(spec.NamedChildCount()); j++ {
				switch spec.NamedChild(j).Type() {
				case "struct_type":
					return types.KindStruct
				case "interface_type":
					return types.KindInterface
				}
			}
		}
		return types.KindType
	}
	return kindForNode(node)
}

// dedupSymbols drops duplicate captures of the same definition (a wrapper
// query and its inner query can both match) keyed by name and start line
func dedupSymbols(symbols []types.Symbol) []types.Symbol {
	if len(symbols) <= 1 {
		return symbols
	}

	type key struct {
		name string
		line int
	}
	seen := make(map[key]int, len(symbols))
	out := symbols[:0]
	for _, s := range symbols {
		k := key{s.Name, s.StartLine}
		if idx, dup := seen[k]; dup {
			// Keep the wider span
			if s.EndLine > out[idx].EndLine {
				out[idx] = s
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s)
	}
	return out
}

// assignParents fills each symbol's Parent with the name of its closest
// enclosing symbol, determined by line-range containment
func assignParents(symbols []types.Symbol) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].StartLine != symbols[j].StartLine {
			return symbols[i].StartLine < symbols[j].StartLine
		}
		return symbols[i].EndLine > symbols[j].EndLine
	})

	for i := range symbols {
		best := -1
		for j := range symbols {
			if i == j {
				continue
			}
			if symbols[j].StartLine <= symbols[i].StartLine && symbols[j].EndLine >= symbols[i].EndLine &&
				(symbols[j].StartLine < symbols[i].StartLine || symbols[j].EndLine > symbols[i].EndLine) {
				if best == -1 || spanWithin(symbols[j], symbols[best]) {
					best = j
				}
			}
		}
		if best >= 0 {
			symbols[i].Parent = symbols[best].Name
		}
	}
}

// spanWithin reports whether a's span is contained in b's
func spanWithin(a, b types.Symbol) bool {
	return a.StartLine >= b.StartLine && a.EndLine <= b.EndLine
}
