package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

// ScheduleHandler exposes the investor update timeline.
type ScheduleHandler struct {
	svc   *services.ScheduleService
	audit *services.AuditService
}

func NewScheduleHandler(svc *services.ScheduleService, audit *services.AuditService) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, audit: audit}
}

type scheduleRequest struct {
	Items []services.ScheduleItem `json:"items"`
}

// GET /api/admin/update-schedule
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.svc.Current(requestContext(c))
	if err != nil {
		respondError(c, "schedule", err)
		return
	}
	response.Success(c, http.StatusOK, schedule)
}

// POST /api/admin/update-schedule
func (h *ScheduleHandler) Save(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	schedule, err := h.svc.Save(requestContext(c), req.Items, sessionSlug(c))
	meta := map[string]any{"items": len(req.Items)}
	if schedule != nil {
		meta["version"] = schedule.Version
	}
	auditAdmin(c, h.audit, "schedule.save", "update-schedule", err, meta)
	if err != nil {
		respondError(c, "schedule", err)
		return
	}
	response.Success(c, http.StatusOK, schedule)
}

// GET /api/admin/update-schedule/history
func (h *ScheduleHandler) History(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	revisions, err := h.svc.History(requestContext(c), limit)
	if err != nil {
		respondError(c, "schedule", err)
		return
	}
	if revisions == nil {
		revisions = []services.ScheduleRevision{}
	}
	response.Success(c, http.StatusOK, gin.H{"history": revisions})
}
