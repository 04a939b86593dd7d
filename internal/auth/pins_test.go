package auth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/pkg/crypto"
)

func TestPINDirectoryAuthenticate(t *testing.T) {
	hash, err := crypto.HashPIN("9999")
	require.NoError(t, err)

	dir, err := NewPINDirectory([]PINEntry{
		{Slug: "founder", Role: RoleAdmin, PIN: "1234"},
		{Slug: "investors", Role: RoleInvestor, PIN: "5678"},
		{Slug: "deck", Role: "DECK", PINHash: hash},
	})
	require.NoError(t, err)
	require.Equal(t, 3, dir.Len())

	session, err := dir.Authenticate("1234", "")
	require.NoError(t, err)
	require.Equal(t, Session{Slug: "founder", Role: RoleAdmin}, session)

	session, err = dir.Authenticate(" 9999 ", "")
	require.NoError(t, err)
	require.Equal(t, Session{Slug: "deck", Role: RoleDeck}, session)

	session, err = dir.Authenticate("5678", RoleInvestor)
	require.NoError(t, err)
	require.Equal(t, "investors", session.Slug)

	_, err = dir.Authenticate("5678", RoleAdmin)
	require.ErrorIs(t, err, ErrInvalidPIN)

	_, err = dir.Authenticate("0000", "")
	require.ErrorIs(t, err, ErrInvalidPIN)

	_, err = dir.Authenticate("", "")
	require.ErrorIs(t, err, ErrInvalidPIN)

	_, err = dir.Authenticate("1234", Role("owner"))
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestPINDirectoryComparesEveryEntry(t *testing.T) {
	dir, err := NewPINDirectory([]PINEntry{
		{Slug: "founder", Role: RoleAdmin, PIN: "1234"},
		{Slug: "cofounder", Role: RoleAdmin, PIN: "1234"},
		{Slug: "investors", Role: RoleInvestor, PIN: "5678"},
	})
	require.NoError(t, err)

	calls := 0
	t.Cleanup(func() { verifyPIN = crypto.VerifyPIN })
	verifyPIN = func(hash, pin string) bool {
		calls++
		return crypto.VerifyPIN(hash, pin)
	}

	session, err := dir.Authenticate("1234", "")
	require.NoError(t, err)
	require.Equal(t, "founder", session.Slug)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = dir.Authenticate("5678", RoleAdmin)
	require.ErrorIs(t, err, ErrInvalidPIN)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = dir.Authenticate("0000", "")
	require.ErrorIs(t, err, ErrInvalidPIN)
	require.Equal(t, 3, calls)
}

func TestNewPINDirectoryValidation(t *testing.T) {
	cases := []struct {
		name    string
		entries []PINEntry
	}{
		{"missing slug", []PINEntry{{Role: RoleAdmin, PIN: "1"}}},
		{"unknown role", []PINEntry{{Slug: "a", Role: "owner", PIN: "1"}}},
		{"missing pin", []PINEntry{{Slug: "a", Role: RoleAdmin}}},
		{"bad hash", []PINEntry{{Slug: "a", Role: RoleAdmin, PINHash: "plain"}}},
		{"duplicate slug", []PINEntry{{Slug: "a", Role: RoleAdmin, PIN: "1"}, {Slug: "a", Role: RoleDeck, PIN: "2"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPINDirectory(tc.entries)
			require.Error(t, err)
		})
	}
}

func TestNilPINDirectory(t *testing.T) {
	var dir *PINDirectory
	require.Zero(t, dir.Len())
	_, err := dir.Authenticate("1234", "")
	require.ErrorIs(t, err, ErrInvalidPIN)
}
