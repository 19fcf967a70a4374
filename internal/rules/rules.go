package rules

import (
	"sort"
	"strings"

	"github.com/dshills/treechunk/pkg/types"
)

// Rule is the classification of one node type
type Rule struct {
	Role types.Role
	Kind types.ChunkType // Chunk type for notable nodes; defaults to the node type
}

// Table maps node type names of one language to rules
type Table struct {
	Language   string
	Extensions []string
	Rules      map[string]Rule

	// Bodies lists node types that hold a declaration body. The header of a
	// notable node ends where its first body child starts.
	Bodies []string

	// Imports lists import node types. They stay in their parent's content
	// unless the registry is built with WithImportChunks.
	Imports []string
}

// RoleOf returns the role of a node type. Unknown node types are ignored.
func (t *Table) RoleOf(nodeType string) types.Role {
	return t.Rules[nodeType].Role
}

// KindOf returns the chunk type for a notable node type
func (t *Table) KindOf(nodeType string) types.ChunkType {
	if kind := t.Rules[nodeType].Kind; kind != "" {
		return kind
	}
	return types.ChunkType(nodeType)
}

// IsBody reports whether nodeType delimits a declaration body
func (t *Table) IsBody(nodeType string) bool {
	for _, b := range t.Bodies {
		if b == nodeType {
			return true
		}
	}
	return false
}

// Registry holds the rule tables of all supported languages.
// A Registry is immutable once built and safe for concurrent use.
type Registry struct {
	tables     map[string]*Table
	extensions map[string]string
}

// NewRegistry creates a registry from tables. Later tables replace earlier
// tables of the same language.
func NewRegistry(tables ...*Table) *Registry {
	r := &Registry{
		tables:     make(map[string]*Table, len(tables)),
		extensions: make(map[string]string),
	}
	for _, t := range tables {
		r.tables[t.Language] = t
	}
	for _, t := range r.tables {
		for _, ext := range t.Extensions {
			r.extensions[strings.ToLower(ext)] = t.Language
		}
	}
	return r
}

// Default returns a registry with the built-in tables
func Default() *Registry {
	return NewRegistry(Builtin()...)
}

// Table returns the rule table of a language
func (r *Registry) Table(language string) (*Table, error) {
	t, ok := r.tables[language]
	if !ok {
		return nil, &types.UnsupportedLanguageError{Language: language}
	}
	return t, nil
}

// RoleOf returns the role of a node type in a language
func (r *Registry) RoleOf(language, nodeType string) (types.Role, error) {
	t, err := r.Table(language)
	if err != nil {
		return types.RoleIgnore, err
	}
	return t.RoleOf(nodeType), nil
}

// LanguageForExtension returns the language registered for a file extension
// such as ".py". The lookup is case-insensitive.
func (r *Registry) LanguageForExtension(ext string) (string, bool) {
	lang, ok := r.extensions[strings.ToLower(ext)]
	return lang, ok
}

// Languages returns the supported language ids in sorted order
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.tables))
	for lang := range r.tables {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// WithImportChunks returns a new registry in which every table's import node
// types are notable nodes of kind import. Tables are copied; r is unchanged.
func (r *Registry) WithImportChunks() *Registry {
	all := make([]*Table, 0, len(r.tables))
	for _, lang := range r.Languages() {
		t := *r.tables[lang]
		t.Rules = make(map[string]Rule, len(t.Rules)+len(t.Imports))
		for nodeType, rule := range r.tables[lang].Rules {
			t.Rules[nodeType] = rule
		}
		for _, nodeType := range t.Imports {
			t.Rules[nodeType] = Rule{Role: types.RoleNotableBlock, Kind: types.ChunkImport}
		}
		all = append(all, &t)
	}
	return NewRegistry(all...)
}

// Merge returns a new registry holding r's tables overridden by tables
func (r *Registry) Merge(tables ...*Table) *Registry {
	all := make([]*Table, 0, len(r.tables)+len(tables))
	for _, lang := range r.Languages() {
		all = append(all, r.tables[lang])
	}
	return NewRegistry(append(all, tables...)...)
}
