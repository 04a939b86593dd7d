package handlers

import (
	stdErrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/middleware"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/metrics"
	"github.com/baselineanalytics/portal/pkg/response"
)

// SessionHandler manages PIN sessions (login/current/logout).
type SessionHandler struct {
	codec      *iauth.SessionCodec
	pins       *iauth.PINDirectory
	authorizer *iauth.Authorizer
	audit      *services.AuditService
}

// NewSessionHandler wires the session endpoints.
func NewSessionHandler(codec *iauth.SessionCodec, pins *iauth.PINDirectory, authorizer *iauth.Authorizer, audit *services.AuditService) *SessionHandler {
	return &SessionHandler{codec: codec, pins: pins, authorizer: authorizer, audit: audit}
}

type sessionRequest struct {
	PIN  string `json:"pin" validate:"required,max=128"`
	Role string `json:"role" validate:"omitempty,oneof=admin investor deck"`
}

type sessionPayload struct {
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// POST /api/auth/session
func (h *SessionHandler) Create(c *gin.Context) {
	var req sessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var role iauth.Role
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := iauth.ParseRole(req.Role)
		if !ok {
			response.Error(c, errors.NewBadRequest("role is invalid"))
			return
		}
		role = parsed
	}
	roleLabel := role.String()
	if roleLabel == "" {
		roleLabel = "any"
	}

	session, err := h.pins.Authenticate(req.PIN, role)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(roleLabel, "failure").Inc()
		recordAudit(c, h.audit, services.AuditEntry{
			Role:     roleLabel,
			Action:   "auth.login",
			Resource: "session",
			Result:   services.AuditResultFailure,
		})
		if stdErrors.Is(err, iauth.ErrInvalidPIN) || stdErrors.Is(err, iauth.ErrInvalidRole) {
			response.Error(c, errors.ErrInvalidPIN)
			return
		}
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	token, expiresAt, err := h.codec.Issue(session)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(session.Role.String(), "failure").Inc()
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	h.setCookie(c, token, int(h.codec.TTL()/time.Second))
	metrics.AuthAttempts.WithLabelValues(session.Role.String(), "success").Inc()
	recordAudit(c, h.audit, services.AuditEntry{
		Actor:    session.Slug,
		Role:     session.Role.String(),
		Action:   "auth.login",
		Resource: "session",
		Result:   services.AuditResultSuccess,
	})

	response.Success(c, http.StatusOK, sessionPayload{
		Slug:      session.Slug,
		Role:      session.Role.String(),
		IsAdmin:   h.authorizer.IsAdmin(session),
		ExpiresAt: expiresAt.UTC(),
	})
}

// GET /api/auth/session
func (h *SessionHandler) Current(c *gin.Context) {
	token, err := c.Cookie(h.codec.CookieName())
	if err != nil || strings.TrimSpace(token) == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.codec.Verify(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	payload := sessionPayload{
		Slug:    claims.Slug,
		Role:    claims.Role.String(),
		IsAdmin: h.authorizer.IsAdmin(claims.Session()),
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	response.Success(c, http.StatusOK, payload)
}

// DELETE /api/auth/session
func (h *SessionHandler) Delete(c *gin.Context) {
	if token, err := c.Cookie(h.codec.CookieName()); err == nil {
		if claims, verr := h.codec.Verify(token); verr == nil {
			recordAudit(c, h.audit, services.AuditEntry{
				Actor:    claims.Slug,
				Role:     claims.Role.String(),
				Action:   "auth.logout",
				Resource: "session",
				Result:   services.AuditResultSuccess,
			})
		}
	}

	h.setCookie(c, "", -1)
	response.Success(c, http.StatusOK, gin.H{"signed_out": true})
}

func (h *SessionHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.codec.CookieName(),
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   middleware.IsSecureRequest(c.Request),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
