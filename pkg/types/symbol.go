package types

import "errors"

// SymbolKind represents the kind of code construct a symbol names
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindConst     SymbolKind = "const"
	KindVar       SymbolKind = "var"
)

// Symbol represents a named code construct extracted from a source file.
// Symbols produced by the regex fallback extractor carry Approximate=true:
// their line ranges are best-effort and their names may miss edge cases
// (multiline signatures, decorators). Structured extraction leaves it false.
type Symbol struct {
	// Identification
	ID   int64
	Name string
	Kind SymbolKind

	// Nesting: name of the closest enclosing symbol, empty at top level
	Parent string

	// Location (1-based, inclusive)
	StartLine int
	EndLine   int

	// Quality
	Approximate bool
}

// ValidateKind checks if the symbol kind is valid
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindFunction, KindMethod, KindClass, KindStruct, KindInterface, KindType, KindConst, KindVar:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// IsTopLevel returns true if the symbol has no enclosing symbol
func (s *Symbol) IsTopLevel() bool {
	return s.Parent == ""
}

// Contains reports whether the symbol's span contains the given line
func (s *Symbol) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// Validate performs comprehensive validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	if s.StartLine <= 0 || s.EndLine <= 0 {
		return errors.New("invalid position: line numbers must be positive")
	}

	if s.StartLine > s.EndLine {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	return nil
}
