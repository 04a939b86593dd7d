package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
)

func registerContentRoutes(api, admin *gin.RouterGroup, requireSession gin.HandlerFunc, deps Dependencies) {
	contentHandler := handlers.NewContentHandler(deps.Content, deps.Audit)

	api.GET("/content", requireSession, contentHandler.Keys)
	api.GET("/content/:key", requireSession, contentHandler.Get)
	admin.PUT("/content/:key", contentHandler.Save)
}
