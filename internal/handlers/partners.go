package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/layout"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/response"
)

// PartnerHandler manages the partner network graph.
type PartnerHandler struct {
	svc   *services.PartnerService
	audit *services.AuditService
}

func NewPartnerHandler(svc *services.PartnerService, audit *services.AuditService) *PartnerHandler {
	return &PartnerHandler{svc: svc, audit: audit}
}

type createPartnerRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Category    string `json:"category" validate:"max=60"`
	Description string `json:"description" validate:"max=2000"`
	Website     string `json:"website" validate:"omitempty,url,max=512"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url,max=1024"`
}

type updatePartnerRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=120"`
	Category    *string `json:"category" validate:"omitempty,max=60"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Website     *string `json:"website" validate:"omitempty,max=512"`
	LogoURL     *string `json:"logo_url" validate:"omitempty,max=1024"`
}

type createConnectionRequest struct {
	SourceID string   `json:"source_id" validate:"required"`
	TargetID string   `json:"target_id" validate:"required"`
	Kind     string   `json:"kind" validate:"max=40"`
	Strength *float64 `json:"strength"`
}

type savePositionsRequest struct {
	Positions []layout.Position `json:"positions" validate:"required"`
}

// GET /api/partners/network
func (h *PartnerHandler) Network(c *gin.Context) {
	network, err := h.svc.Network(requestContext(c))
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusOK, network)
}

// POST /api/admin/partners
func (h *PartnerHandler) Create(c *gin.Context) {
	var req createPartnerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	partner, err := h.svc.Create(requestContext(c), services.CreatePartnerInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Website:     req.Website,
		LogoURL:     req.LogoURL,
	})
	auditAdmin(c, h.audit, "partner.create", "partner", err, map[string]any{"name": req.Name})
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusCreated, partner)
}

// PUT /api/admin/partners/:id
func (h *PartnerHandler) Update(c *gin.Context) {
	var req updatePartnerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	id := c.Param("id")
	partner, err := h.svc.Update(requestContext(c), id, services.UpdatePartnerInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Website:     req.Website,
		LogoURL:     req.LogoURL,
	})
	auditAdmin(c, h.audit, "partner.update", "partner:"+id, err, nil)
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusOK, partner)
}

// DELETE /api/admin/partners/:id
func (h *PartnerHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.Delete(requestContext(c), id)
	auditAdmin(c, h.audit, "partner.delete", "partner:"+id, err, nil)
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/admin/partners/connections
func (h *PartnerHandler) Connect(c *gin.Context) {
	var req createConnectionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	connection, err := h.svc.Connect(requestContext(c), services.CreateConnectionInput{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Kind:     req.Kind,
		Strength: req.Strength,
	})
	auditAdmin(c, h.audit, "partner.connect", "partner-connection", err, map[string]any{
		"source_id": req.SourceID,
		"target_id": req.TargetID,
	})
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusCreated, connection)
}

// DELETE /api/admin/partners/connections/:id
func (h *PartnerHandler) Disconnect(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.Disconnect(requestContext(c), id)
	auditAdmin(c, h.audit, "partner.disconnect", "partner-connection:"+id, err, nil)
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// PUT /api/admin/partners/positions
func (h *PartnerHandler) SavePositions(c *gin.Context) {
	var req savePositionsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	positions, err := h.svc.SavePositions(requestContext(c), req.Positions)
	auditAdmin(c, h.audit, "partner.positions", "partner-network", err, map[string]any{"count": len(req.Positions)})
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"positions": positions})
}

// POST /api/admin/partners/layout
func (h *PartnerHandler) Layout(c *gin.Context) {
	positions, err := h.svc.ComputeLayout(requestContext(c))
	auditAdmin(c, h.audit, "partner.layout", "partner-network", err, nil)
	if err != nil {
		respondError(c, "partners", err)
		return
	}
	if positions == nil {
		positions = []layout.Position{}
	}
	response.Success(c, http.StatusOK, gin.H{"positions": positions})
}
