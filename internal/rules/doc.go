// Package rules provides the per-language tables that classify syntax node
// types into chunking roles.
//
// A Table maps node type names to a Rule (role plus chunk kind) and lists the
// node types that delimit declaration bodies. Tables are pure data: adding a
// language means adding a table, never a code path.
//
//	reg := rules.Default()
//	role, err := reg.RoleOf("python", "function_definition")
//	// role == types.RoleNotableBlock
//
// Extra tables can be loaded from YAML and merged over the built-in ones:
//
//	tables, err := rules.LoadFile("rules.yaml")
//	reg = reg.Merge(tables...)
package rules
