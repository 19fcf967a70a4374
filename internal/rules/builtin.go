package rules

import "github.com/dshills/treechunk/pkg/types"

func notable(kind types.ChunkType) Rule {
	return Rule{Role: types.RoleNotableBlock, Kind: kind}
}

var container = Rule{Role: types.RoleNestingContainer}

func withContainers(m map[string]Rule, nodeTypes ...string) map[string]Rule {
	for _, nt := range nodeTypes {
		m[nt] = container
	}
	return m
}

// Python returns the rule table for Python
func Python() *Table {
	return &Table{
		Language:   "python",
		Extensions: []string{".py", ".pyi"},
		Rules: withContainers(map[string]Rule{
			"function_definition": notable(types.ChunkFunction),
			"class_definition":    notable(types.ChunkClass),
		},
			"block", "decorated_definition",
			"if_statement", "elif_clause", "else_clause",
			"for_statement", "while_statement",
			"try_statement", "except_clause", "finally_clause",
			"with_statement", "match_statement", "case_clause",
		),
		Bodies:  []string{"block"},
		Imports: []string{"import_statement", "import_from_statement", "future_import_statement"},
	}
}

var jsContainers = []string{
	"class_body", "statement_block", "export_statement",
	"if_statement", "else_clause",
	"for_statement", "for_in_statement", "while_statement", "do_statement",
	"try_statement", "catch_clause", "finally_clause",
	"switch_statement", "switch_body", "switch_case", "switch_default",
}

func javascriptRules() map[string]Rule {
	return withContainers(map[string]Rule{
		"function_declaration":           notable(types.ChunkFunction),
		"generator_function_declaration": notable(types.ChunkFunction),
		"class_declaration":              notable(types.ChunkClass),
		"method_definition":              notable(types.ChunkMethod),
	}, jsContainers...)
}

// JavaScript returns the rule table for JavaScript
func JavaScript() *Table {
	return &Table{
		Language:   "javascript",
		Extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		Rules:      javascriptRules(),
		Bodies:     []string{"statement_block", "class_body"},
		Imports:    []string{"import_statement"},
	}
}

// TypeScript returns the rule table for TypeScript
func TypeScript() *Table {
	r := javascriptRules()
	r["abstract_class_declaration"] = notable(types.ChunkClass)
	r["interface_declaration"] = notable(types.ChunkInterface)
	// namespaces are wrapped in expression_statement, declare module in ambient_declaration
	withContainers(r, "module", "internal_module", "expression_statement", "ambient_declaration")

	return &Table{
		Language:   "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		Rules:      r,
		Bodies:     []string{"statement_block", "class_body", "interface_body", "object_type"},
		Imports:    []string{"import_statement", "import_alias"},
	}
}

// Go returns the rule table for Go
func Go() *Table {
	return &Table{
		Language:   "go",
		Extensions: []string{".go"},
		Rules: withContainers(map[string]Rule{
			"function_declaration": notable(types.ChunkFunction),
			"method_declaration":   notable(types.ChunkMethod),
			"type_declaration":     notable(types.ChunkTypeDecl),
		},
			"block", "if_statement", "for_statement",
			"expression_switch_statement", "type_switch_statement", "select_statement",
			"expression_case", "type_case", "communication_case", "default_case",
		),
		Bodies:  []string{"block"},
		Imports: []string{"import_declaration"},
	}
}

// Builtin returns fresh copies of all built-in tables
func Builtin() []*Table {
	return []*Table{Python(), JavaScript(), TypeScript(), Go()}
}
