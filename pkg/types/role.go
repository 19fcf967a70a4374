package types

import "fmt"

// Role is the chunking role of a syntax node type
type Role int

const (
	// RoleIgnore nodes are copied verbatim into the enclosing chunk
	RoleIgnore Role = iota
	// RoleNestingContainer nodes are traversed but produce no chunk
	RoleNestingContainer
	// RoleNotableBlock nodes become their own chunk
	RoleNotableBlock
)

var roleNames = map[Role]string{
	RoleIgnore:           "ignore",
	RoleNestingContainer: "container",
	RoleNotableBlock:     "notable",
}

// String returns the role name used in rule table files
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if name == s {
			return role, nil
		}
	}
	return RoleIgnore, fmt.Errorf("unknown role %q", s)
}
