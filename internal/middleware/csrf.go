package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/pkg/crypto"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/response"
)

const (
	// CSRFCookieName carries the token to the browser; it is readable by scripts.
	CSRFCookieName = "baseline_csrf"
	// CSRFHeaderName is where JSON clients echo the token on mutating requests.
	CSRFHeaderName = "X-CSRF-Token"
	// CSRFFormField is accepted instead of the header for multipart deck uploads.
	CSRFFormField = "_csrf"

	csrfTokenBytes   = 32
	csrfCookieMaxAge = 12 * 60 * 60
)

// CSRF enforces a double-submit cookie. Safe requests are issued a token in
// both the cookie and the response header; POST, PUT, PATCH and DELETE must
// echo the cookie value through the header or the form field.
func CSRF() gin.HandlerFunc {
	log := logger.WithModule("csrf")

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, issued, err := csrfToken(c)
		if err != nil {
			response.Abort(c, errors.ErrInternalServer.WithInternal(err))
			return
		}

		if !requiresCSRF(c.Request.Method) {
			c.Header(CSRFHeaderName, token)
			c.Next()
			return
		}

		if !crypto.ConstantTimeEqual(token, presentedCSRFToken(c)) {
			log.Warn("csrf validation failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Bool("cookie_issued", issued),
			)
			response.Abort(c, errors.ErrCSRFInvalid)
			return
		}
		c.Next()
	}
}

func presentedCSRFToken(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(CSRFHeaderName)); token != "" {
		return token
	}
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return strings.TrimSpace(c.PostForm(CSRFFormField))
	}
	return ""
}

func csrfToken(c *gin.Context) (token string, issued bool, err error) {
	if existing, err := c.Cookie(CSRFCookieName); err == nil && existing != "" {
		setCSRFCookie(c, existing)
		return existing, false, nil
	}

	token, err = crypto.GenerateToken(csrfTokenBytes)
	if err != nil {
		return "", false, err
	}
	setCSRFCookie(c, token)
	return token, true, nil
}

func setCSRFCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		Secure:   IsSecureRequest(c.Request),
		MaxAge:   csrfCookieMaxAge,
		SameSite: http.SameSiteStrictMode,
	})
}

// IsSecureRequest reports whether the client reached us over TLS, directly or
// through a proxy setting X-Forwarded-Proto.
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func requiresCSRF(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
