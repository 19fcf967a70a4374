package rules

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/treechunk/pkg/types"
)

// tableFile is the on-disk layout of rule tables:
//
//	languages:
//	  ruby:
//	    extensions: [".rb"]
//	    bodies: [body_statement]
//	    imports: [call]
//	    rules:
//	      method: {role: notable, kind: method}
//	      class:  {role: notable, kind: class}
//	      if:     {role: container}
type tableFile struct {
	Languages map[string]languageFile `yaml:"languages"`
}

type languageFile struct {
	Extensions []string            `yaml:"extensions"`
	Bodies     []string            `yaml:"bodies"`
	Imports    []string            `yaml:"imports"`
	Rules      map[string]ruleFile `yaml:"rules"`
}

type ruleFile struct {
	Role string `yaml:"role"`
	Kind string `yaml:"kind"`
}

// LoadYAML reads rule tables from r. Tables are returned sorted by language.
func LoadYAML(r io.Reader) ([]*Table, error) {
	var f tableFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode rule tables: %w", err)
	}

	langs := make([]string, 0, len(f.Languages))
	for lang := range f.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	tables := make([]*Table, 0, len(langs))
	for _, lang := range langs {
		lf := f.Languages[lang]
		t := &Table{
			Language:   lang,
			Extensions: lf.Extensions,
			Bodies:     lf.Bodies,
			Imports:    lf.Imports,
			Rules:      make(map[string]Rule, len(lf.Rules)),
		}
		for nodeType, rf := range lf.Rules {
			role, err := types.ParseRole(rf.Role)
			if err != nil {
				return nil, fmt.Errorf("language %s, node type %s: %w", lang, nodeType, err)
			}
			if rf.Kind != "" && role != types.RoleNotableBlock {
				return nil, fmt.Errorf("language %s, node type %s: kind is only valid for notable nodes", lang, nodeType)
			}
			if types.ChunkType(rf.Kind) == types.ChunkRoot {
				return nil, fmt.Errorf("language %s, node type %s: kind %q is reserved for the root chunk", lang, nodeType, rf.Kind)
			}
			t.Rules[nodeType] = Rule{Role: role, Kind: types.ChunkType(rf.Kind)}
		}
		tables = append(tables, t)
	}

	return tables, nil
}

// LoadFile reads rule tables from a YAML file
func LoadFile(path string) ([]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadYAML(f)
}
