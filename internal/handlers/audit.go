package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/internal/middleware"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/admin/audit
// Filters: actor, action (trailing * for prefix), result, resource,
// meta=key:value, since and until (RFC3339).
func (h *AuditHandler) List(c *gin.Context) {
	page := max(parseIntQuery(c, "page", 1), 1)
	per := parseIntQuery(c, "per_page", 50)
	if per <= 0 || per > 200 {
		per = 50
	}

	filters := services.AuditFilters{
		Actor:    c.Query("actor"),
		Action:   c.Query("action"),
		Result:   c.Query("result"),
		Resource: c.Query("resource"),
	}
	if meta := strings.TrimSpace(c.Query("meta")); meta != "" {
		key, value, ok := strings.Cut(meta, ":")
		if !ok || strings.TrimSpace(key) == "" {
			response.Error(c, errors.NewBadRequest("meta must be key:value"))
			return
		}
		filters.MetadataKey, filters.MetadataValue = key, value
	}

	var ok bool
	if filters.Since, ok = parseTimeQuery(c, "since"); !ok {
		return
	}
	if filters.Until, ok = parseTimeQuery(c, "until"); !ok {
		return
	}

	logs, total, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: per, Filters: filters})
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, response.NewMeta(page, per, total))
}

// parseTimeQuery reads an optional RFC3339 query parameter. A malformed value
// writes a 400 and returns ok=false.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, errors.NewBadRequest(key+" must be an RFC3339 timestamp"))
		return nil, false
	}
	return &t, true
}

// recordAudit stores an audit entry for the current request. Failures are logged only.
func recordAudit(c *gin.Context, audit *services.AuditService, entry services.AuditEntry) {
	if audit == nil {
		return
	}
	if entry.Actor == "" {
		if session, ok := middleware.SessionFromContext(c); ok {
			entry.Actor = session.Slug
			entry.Role = session.Role.String()
		}
	}
	if entry.IPAddress == "" {
		entry.IPAddress = c.ClientIP()
	}
	if entry.UserAgent == "" {
		entry.UserAgent = c.Request.UserAgent()
	}
	if err := audit.Log(requestContext(c), entry); err != nil {
		logger.WithModule("audit").Warn("record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

// auditAdmin records a successful or failed admin mutation.
func auditAdmin(c *gin.Context, audit *services.AuditService, action, resource string, err error, metadata map[string]any) {
	result := services.AuditResultSuccess
	if err != nil {
		result = services.AuditResultFailure
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["error"] = err.Error()
	}
	recordAudit(c, audit, services.AuditEntry{
		Action:   action,
		Resource: resource,
		Result:   result,
		Metadata: metadata,
	})
}
