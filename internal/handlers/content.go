package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/response"
)

const maxContentBody = 2 << 20

// ContentHandler serves the editable JSON content documents.
type ContentHandler struct {
	svc   *services.ContentService
	audit *services.AuditService
}

func NewContentHandler(svc *services.ContentService, audit *services.AuditService) *ContentHandler {
	return &ContentHandler{svc: svc, audit: audit}
}

// GET /api/content
func (h *ContentHandler) Keys(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"keys": h.svc.Keys()})
}

// GET /api/content/:key
func (h *ContentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(requestContext(c), c.Param("key"))
	if err != nil {
		respondError(c, "content", err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}

// PUT /api/admin/content/:key
func (h *ContentHandler) Save(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxContentBody+1))
	if err != nil {
		response.Error(c, errors.NewBadRequest("request body could not be read"))
		return
	}
	if len(body) > maxContentBody {
		response.Error(c, errors.ErrPayloadTooLarge)
		return
	}
	if !json.Valid(body) {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	key := c.Param("key")
	doc, err := h.svc.Save(requestContext(c), key, json.RawMessage(body), sessionSlug(c))
	meta := map[string]any{}
	if doc != nil {
		meta["version"] = doc.Version
	}
	auditAdmin(c, h.audit, "content.save", "content:"+key, err, meta)
	if err != nil {
		respondError(c, "content", err)
		return
	}
	response.Success(c, http.StatusOK, doc)
}
