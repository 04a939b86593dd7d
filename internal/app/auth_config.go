package app

import (
	"strings"

	"github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/ratelimit"
)

// Rate limit counter stores.
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreCache  = "cache"
)

// SessionCodecConfig converts AuthConfig into the parameters expected by the session codec.
func (c AuthConfig) SessionCodecConfig() auth.SessionConfig {
	ttl := c.Session.TTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}

	cookie := strings.TrimSpace(c.Session.CookieName)
	if cookie == "" {
		cookie = auth.DefaultCookieName
	}

	return auth.SessionConfig{
		Secret:     c.Session.Secret,
		Issuer:     strings.TrimSpace(c.Session.Issuer),
		TTL:        ttl,
		CookieName: cookie,
	}
}

// PINEntries returns every configured PIN holder. The admin_pin, investor_pin
// and deck_pin shortcuts register holders named after their role.
func (c AuthConfig) PINEntries() []auth.PINEntry {
	entries := make([]auth.PINEntry, 0, len(c.Pins)+3)

	shortcuts := []struct {
		pin  string
		role auth.Role
	}{
		{c.AdminPIN, auth.RoleAdmin},
		{c.InvestorPIN, auth.RoleInvestor},
		{c.DeckPIN, auth.RoleDeck},
	}
	for _, shortcut := range shortcuts {
		if strings.TrimSpace(shortcut.pin) == "" {
			continue
		}
		entries = append(entries, auth.PINEntry{
			Slug: string(shortcut.role),
			Role: shortcut.role,
			PIN:  shortcut.pin,
		})
	}

	for _, pin := range c.Pins {
		entries = append(entries, auth.PINEntry{
			Slug:    strings.TrimSpace(pin.Slug),
			Role:    auth.Role(strings.ToLower(strings.TrimSpace(pin.Role))),
			PIN:     pin.PIN,
			PINHash: pin.PINHash,
		})
	}
	return entries
}

// LoginPolicy converts the login rate limit settings into a limiter policy.
func (c AuthConfig) LoginPolicy() ratelimit.Policy {
	policy := ratelimit.LoginPolicy
	if c.LoginRateLimit.MaxRequests > 0 {
		policy.MaxRequests = c.LoginRateLimit.MaxRequests
	}
	if c.LoginRateLimit.Window > 0 {
		policy.Window = c.LoginRateLimit.Window
	}
	return policy
}

// RateLimitStore returns the configured counter store, defaulting to memory.
func (c AuthConfig) RateLimitStore() string {
	if strings.EqualFold(strings.TrimSpace(c.LoginRateLimit.Store), RateLimitStoreCache) {
		return RateLimitStoreCache
	}
	return RateLimitStoreMemory
}
