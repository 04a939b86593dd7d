package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
	"github.com/baselineanalytics/portal/internal/middleware"
)

func registerAuthRoutes(api *gin.RouterGroup, deps Dependencies) {
	sessionHandler := handlers.NewSessionHandler(deps.Codec, deps.PINs, deps.Authorizer, deps.Audit)
	loginLimit := middleware.RateLimit(deps.Limiter, deps.Config.Auth.LoginPolicy(), "login")

	auth := api.Group("/auth")
	{
		auth.POST("/session", loginLimit, sessionHandler.Create)
		auth.GET("/session", sessionHandler.Current)
		auth.DELETE("/session", sessionHandler.Delete)
	}
}
