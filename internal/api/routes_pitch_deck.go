package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
)

func registerPitchDeckRoutes(api *gin.RouterGroup, requireSession, requireAdmin gin.HandlerFunc, deps Dependencies) {
	deckHandler := handlers.NewPitchDeckHandler(deps.Slides, deps.Imports, deps.Authorizer, deps.Audit)

	deck := api.Group("/pitch-deck")
	{
		deck.POST("/upload", requireAdmin, deckHandler.Upload)
		deck.POST("/upload-slide", requireAdmin, deckHandler.UploadSlide)
		deck.GET("/slides", requireSession, deckHandler.ListSlides)
		deck.POST("/slides", requireAdmin, deckHandler.SlideAction)
		deck.DELETE("/slides", requireAdmin, deckHandler.ClearSlides)
		deck.GET("/file", requireSession, deckHandler.File)
	}
}
