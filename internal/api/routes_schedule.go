package api

import (
	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/handlers"
)

func registerScheduleRoutes(admin *gin.RouterGroup, deps Dependencies) {
	scheduleHandler := handlers.NewScheduleHandler(deps.Schedule, deps.Audit)

	schedule := admin.Group("/update-schedule")
	{
		schedule.GET("", scheduleHandler.Get)
		schedule.POST("", scheduleHandler.Save)
		schedule.GET("/history", scheduleHandler.History)
	}
}
