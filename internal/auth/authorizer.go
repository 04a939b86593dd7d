package auth

import "strings"

// Authorizer decides admin access from verified claims.
type Authorizer struct {
	adminSlugs map[string]struct{}
}

// NewAuthorizer builds an Authorizer from the admin slug allow-list.
func NewAuthorizer(adminSlugs []string) *Authorizer {
	allowed := make(map[string]struct{}, len(adminSlugs))
	for _, slug := range adminSlugs {
		if slug = strings.TrimSpace(slug); slug != "" {
			allowed[slug] = struct{}{}
		}
	}
	return &Authorizer{adminSlugs: allowed}
}

// IsAdmin reports whether the session holds the admin role and is allow-listed.
func (a *Authorizer) IsAdmin(session Session) bool {
	if a == nil || session.Role != RoleAdmin {
		return false
	}
	_, ok := a.adminSlugs[session.Slug]
	return ok
}
