package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL defines the fallback validity period for session tokens.
const DefaultSessionTTL = 7 * 24 * time.Hour

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "baseline_session"

// ErrInvalidRole is returned when a token or request carries an unknown role.
var ErrInvalidRole = errors.New("session: invalid role")

// SessionConfig bundles the configuration required to build a SessionCodec.
type SessionConfig struct {
	Secret     string
	Issuer     string
	TTL        time.Duration
	CookieName string
	Clock      func() time.Time
}

// Session identifies an authenticated PIN holder.
type Session struct {
	Slug string `json:"slug"`
	Role Role   `json:"role"`
}

// SessionClaims represents the claims embedded in issued session tokens.
type SessionClaims struct {
	Slug string `json:"slug"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Session returns the identity carried by the claims.
func (c *SessionClaims) Session() Session {
	return Session{Slug: c.Slug, Role: c.Role}
}

// SessionCodec issues and verifies signed session tokens.
type SessionCodec struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	cookieName string
	now        func() time.Time
}

// NewSessionCodec constructs a SessionCodec instance when provided with the required configuration.
func NewSessionCodec(cfg SessionConfig) (*SessionCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionCodec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		ttl:        ttl,
		cookieName: cookieName,
		now:        now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// CookieName returns the name of the session cookie.
func (c *SessionCodec) CookieName() string { return c.cookieName }

// Issue signs a token for session and returns it with its expiry.
func (c *SessionCodec) Issue(session Session) (string, time.Time, error) {
	if strings.TrimSpace(session.Slug) == "" {
		return "", time.Time{}, errors.New("session: slug is required")
	}
	if !session.Role.Valid() {
		return "", time.Time{}, ErrInvalidRole
	}

	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := &SessionClaims{
		Slug: session.Slug,
		Role: session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Slug,
			Issuer:    c.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify parses and validates a signed token, returning its claims.
func (c *SessionCodec) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, errors.New("session: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)

	var claims SessionClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: parse token: %w", err)
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, errors.New("session: invalid issuer")
	}
	if claims.Slug == "" {
		return nil, errors.New("session: missing slug claim")
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidRole
	}

	return &claims, nil
}
