package extractor

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"codescout/pkg/types"
)

// languageSpec defines the tree-sitter grammar and symbol query for one
// language. The query must capture the definition node as @symbol and its
// identifier as @name.
type languageSpec struct {
	language *sitter.Language
	query    string
}

// grammars maps language tags to their structured-extraction specs.
// Languages absent here fall through to the regex extractor.
var grammars = map[string]*languageSpec{
	"go": {
		language: golang.GetLanguage(),
		query: `
			(function_declaration name: (identifier) @name) @symbol
			(method_declaration name: (field_identifier) @name) @symbol
			(type_declaration (type_spec name: (type_identifier) @name)) @symbol
		`,
	},
	"python": {
		language: python.GetLanguage(),
		query: `
			(function_definition name: (identifier) @name) @symbol
			(class_definition name: (identifier) @name) @symbol
			(decorated_definition definition: (function_definition name: (identifier) @name)) @symbol
			(decorated_definition definition: (class_definition name: (identifier) @name)) @symbol
		`,
	},
	"javascript": {
		language: javascript.GetLanguage(),
		query: `
			(function_declaration name: (identifier) @name) @symbol
			(class_declaration name: (identifier) @name) @symbol
			(method_definition name: (property_identifier) @name) @symbol
			(export_statement (function_declaration name: (identifier) @name)) @symbol
			(export_statement (class_declaration name: (identifier) @name)) @symbol
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @symbol
		`,
	},
	"typescript": {
		language: typescript.GetLanguage(),
		query: `
			(function_declaration name: (identifier) @name) @symbol
			(class_declaration name: (type_identifier) @name) @symbol
			(method_definition name: (property_identifier) @name) @symbol
			(export_statement (function_declaration name: (identifier) @name)) @symbol
			(export_statement (class_declaration name: (type_identifier) @name)) @symbol
			(lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @symbol
			(interface_declaration name: (type_identifier) @name) @symbol
			(type_alias_declaration name: (type_identifier) @name) @symbol
		`,
	},
}

// nodeKinds maps tree-sitter definition node types to symbol kinds
var nodeKinds = map[string]types.SymbolKind{
	"function_declaration":   types.KindFunction,
	"function_definition":    types.KindFunction,
	"method_declaration":     types.KindMethod,
	"method_definition":      types.KindMethod,
	"class_definition":       types.KindClass,
	"class_declaration":      types.KindClass,
	"interface_declaration":  types.KindInterface,
	"type_alias_declaration": types.KindType,
	"type_declaration":       types.KindType,
	"decorated_definition":   types.KindFunction,
	"lexical_declaration":    types.KindFunction, // arrow function bound to a const
	"export_statement":       types.KindFunction,
}

// kindForNode resolves the symbol kind for a definition node, looking
// through wrapper nodes (decorators, exports) at their first definition child
func kindForNode(node *sitter.Node) types.SymbolKind {
	t := node.Type()
	switch t {
	case "decorated_definition", "export_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			if k, ok := nodeKinds[node.Child(i).Type()]; ok {
				return k
			}
		}
	}
	if k, ok := nodeKinds[t]; ok {
		return k
	}
	return types.KindFunction
}
