package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
)

func registerAuditRoutes(admin *gin.RouterGroup, deps Dependencies) {
	if deps.Audit == nil {
		return
	}
	auditHandler := handlers.NewAuditHandler(deps.Audit)
	admin.GET("/audit", auditHandler.List)
}
