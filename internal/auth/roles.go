package auth

import "strings"

// Role identifies the kind of session a PIN grants.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleInvestor Role = "investor"
	RoleDeck     Role = "deck"
)

// ParseRole normalises value into a known Role.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInvestor, RoleDeck:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }
