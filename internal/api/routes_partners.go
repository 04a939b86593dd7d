package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
)

func registerPartnerRoutes(api, admin *gin.RouterGroup, requireSession gin.HandlerFunc, deps Dependencies) {
	partnerHandler := handlers.NewPartnerHandler(deps.Partners, deps.Audit)

	api.GET("/partners/network", requireSession, partnerHandler.Network)

	partners := admin.Group("/partners")
	{
		partners.POST("", partnerHandler.Create)
		partners.PUT("/positions", partnerHandler.SavePositions)
		partners.POST("/layout", partnerHandler.Layout)
		partners.POST("/connections", partnerHandler.Connect)
		partners.DELETE("/connections/:id", partnerHandler.Disconnect)
		partners.PUT("/:id", partnerHandler.Update)
		partners.DELETE("/:id", partnerHandler.Delete)
	}
}
