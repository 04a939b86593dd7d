package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/app"
	"github.com/baselineanalytics/portal/internal/handlers"
	"github.com/baselineanalytics/portal/internal/monitoring"
	"github.com/baselineanalytics/portal/internal/monitoring/checks"
	"github.com/baselineanalytics/portal/internal/storage"
)

func registerHealthRoutes(r *gin.Engine, deps Dependencies) {
	if !deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", disabledHealthHandler)
		return
	}

	manager := monitoring.NewHealthManager(
		checks.Database(deps.DB, 0),
		checks.Storage(deps.Bucket, 0),
	)
	if deps.Config.Cache.Redis.Enabled {
		manager.Register(checks.Redis(deps.Redis, 0))
	}

	health := handlers.Health(manager)
	r.GET("/health", health)
	r.GET("/api/health", health)
}

// registerFileRoutes serves filesystem bucket objects under /files/<bucket>/.
func registerFileRoutes(r *gin.Engine, bucket storage.Bucket) {
	fs, ok := bucket.(*storage.FilesystemBucket)
	if !ok || fs == nil {
		return
	}
	r.Static(app.FilesURLPrefix+"/"+fs.Name(), fs.Dir())
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
