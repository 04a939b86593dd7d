package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewSessionCodecRequiresSecret(t *testing.T) {
	_, err := NewSessionCodec(SessionConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "session: secret must be provided")
}

func TestSessionCodecDefaults(t *testing.T) {
	codec, err := NewSessionCodec(SessionConfig{Secret: "secret"})
	require.NoError(t, err)
	require.Equal(t, DefaultSessionTTL, codec.TTL())
	require.Equal(t, DefaultCookieName, codec.CookieName())
}

func TestIssueAndVerifySession(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	codec, err := NewSessionCodec(SessionConfig{
		Secret: "super-secret",
		Issuer: "baseline",
		TTL:    time.Hour,
		Clock:  now,
	})
	require.NoError(t, err)

	token, expiresAt, err := codec.Issue(Session{Slug: "founder", Role: RoleAdmin})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(time.Hour)))

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "founder", claims.Slug)
	require.Equal(t, RoleAdmin, claims.Role)
	require.Equal(t, "baseline", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
	require.Equal(t, Session{Slug: "founder", Role: RoleAdmin}, claims.Session())
}

func TestIssueRejectsInvalidSession(t *testing.T) {
	codec, err := NewSessionCodec(SessionConfig{Secret: "secret"})
	require.NoError(t, err)

	_, _, err = codec.Issue(Session{Role: RoleAdmin})
	require.Error(t, err)

	_, _, err = codec.Issue(Session{Slug: "someone", Role: Role("owner")})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestVerifyInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewSessionCodec(SessionConfig{Secret: "issuer-secret", Clock: now})
	require.NoError(t, err)

	token, _, err := issuer.Issue(Session{Slug: "investor", Role: RoleInvestor})
	require.NoError(t, err)

	verifier, err := NewSessionCodec(SessionConfig{Secret: "other-secret", Clock: now})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestVerifyExpired(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	codec, err := NewSessionCodec(SessionConfig{Secret: "secret", TTL: time.Minute, Clock: now})
	require.NoError(t, err)

	token, _, err := codec.Issue(Session{Slug: "deck", Role: RoleDeck})
	require.NoError(t, err)

	current = current.Add(2 * time.Minute)

	_, err = codec.Verify(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestVerifyWrongIssuer(t *testing.T) {
	issuer, err := NewSessionCodec(SessionConfig{Secret: "secret", Issuer: "elsewhere"})
	require.NoError(t, err)
	token, _, err := issuer.Issue(Session{Slug: "founder", Role: RoleAdmin})
	require.NoError(t, err)

	verifier, err := NewSessionCodec(SessionConfig{Secret: "secret", Issuer: "baseline"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	claims := &SessionClaims{
		Slug: "x",
		Role: Role("superuser"),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	codec, err := NewSessionCodec(SessionConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = codec.Verify(token)
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestVerifyEmptyToken(t *testing.T) {
	codec, err := NewSessionCodec(SessionConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = codec.Verify("")
	require.Error(t, err)
}
