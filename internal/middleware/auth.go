package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

const (
	CtxSessionKey = "portalSession"
	CtxClaimsKey  = "authClaims"
	CtxSlugKey    = "sessionSlug"
)

// RequireSession enforces a valid session cookie. When roles are supplied the
// session role must be one of them.
func RequireSession(codec *iauth.SessionCodec, roles ...iauth.Role) gin.HandlerFunc {
	allowed := make(map[iauth.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := authenticate(c, codec)
		if !ok {
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		if len(allowed) > 0 {
			if _, permitted := allowed[claims.Role]; !permitted {
				response.Abort(c, errors.ErrForbidden)
				return
			}
		}

		c.Next()
	}
}

// RequireAdmin enforces an admin session whose slug is on the allow-list.
func RequireAdmin(codec *iauth.SessionCodec, authorizer *iauth.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, codec)
		if !ok {
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		if authorizer == nil || !authorizer.IsAdmin(claims.Session()) {
			response.Abort(c, errors.ErrForbidden)
			return
		}

		c.Next()
	}
}

// SessionFromContext returns the session stored by RequireSession or RequireAdmin.
func SessionFromContext(c *gin.Context) (iauth.Session, bool) {
	value, ok := c.Get(CtxSessionKey)
	if !ok {
		return iauth.Session{}, false
	}
	session, ok := value.(iauth.Session)
	return session, ok
}

func authenticate(c *gin.Context, codec *iauth.SessionCodec) (*iauth.SessionClaims, bool) {
	if codec == nil {
		return nil, false
	}
	if existing, ok := c.Get(CtxClaimsKey); ok {
		if claims, ok := existing.(*iauth.SessionClaims); ok {
			return claims, true
		}
	}

	token, err := c.Cookie(codec.CookieName())
	if err != nil || strings.TrimSpace(token) == "" {
		return nil, false
	}

	claims, err := codec.Verify(token)
	if err != nil {
		return nil, false
	}

	// Propagate identity into request context
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxSessionKey, claims.Session())
	c.Set(CtxSlugKey, claims.Slug)
	return claims, true
}
