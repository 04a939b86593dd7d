package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// ContentSecurityPolicy returns the portal CSP. Slide images may also load
// from imageOrigins, typically the public storage host.
func ContentSecurityPolicy(imageOrigins ...string) string {
	img := []string{"'self'", "data:", "blob:"}
	for _, origin := range imageOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			img = append(img, origin)
		}
	}
	return strings.Join([]string{
		"default-src 'self'",
		"img-src " + strings.Join(img, " "),
		"media-src " + strings.Join(img, " "),
		"font-src 'self' https://fonts.gstatic.com",
		"connect-src 'self' ws: wss:",
		"frame-ancestors 'none'",
	}, "; ")
}

// SecurityHeaders sets the hardening headers on every response. HSTS is only
// sent on requests that arrived over HTTPS.
func SecurityHeaders(imageOrigins ...string) gin.HandlerFunc {
	csp := ContentSecurityPolicy(imageOrigins...)
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", csp)
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		if IsSecureRequest(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}
