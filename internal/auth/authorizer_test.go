package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorizerIsAdmin(t *testing.T) {
	authz := NewAuthorizer([]string{"founder", " ", "cofounder "})

	require.True(t, authz.IsAdmin(Session{Slug: "founder", Role: RoleAdmin}))
	require.True(t, authz.IsAdmin(Session{Slug: "cofounder", Role: RoleAdmin}))
	require.False(t, authz.IsAdmin(Session{Slug: "intern", Role: RoleAdmin}))
	require.False(t, authz.IsAdmin(Session{Slug: "founder", Role: RoleInvestor}))

	var nilAuthz *Authorizer
	require.False(t, nilAuthz.IsAdmin(Session{Slug: "founder", Role: RoleAdmin}))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" Investor ")
	require.True(t, ok)
	require.Equal(t, RoleInvestor, role)

	_, ok = ParseRole("guest")
	require.False(t, ok)
}
