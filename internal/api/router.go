package api

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/app"
	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/handlers"
	"github.com/baselineanalytics/portal/internal/middleware"
	"github.com/baselineanalytics/portal/internal/monitoring/checks"
	"github.com/baselineanalytics/portal/internal/ratelimit"
	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/internal/storage"
)

// Dependencies bundles everything the HTTP layer needs.
type Dependencies struct {
	DB         *gorm.DB
	Config     *app.Config
	Codec      *iauth.SessionCodec
	PINs       *iauth.PINDirectory
	Authorizer *iauth.Authorizer
	Limiter    *ratelimit.Limiter
	Hub        *realtime.Hub
	Bucket     storage.Bucket
	// Redis is nil unless the Redis cache is enabled.
	Redis checks.RedisPinger

	Audit    *services.AuditService
	Slides   *services.SlideService
	Imports  *services.DeckImportService
	Partners *services.PartnerService
	Content  *services.ContentService
	Schedule *services.ScheduleService
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.Codec == nil:
		return errors.New("session codec must be provided")
	case d.PINs == nil:
		return errors.New("pin directory must be provided")
	case d.Authorizer == nil:
		return errors.New("authorizer must be provided")
	case d.Slides == nil || d.Imports == nil:
		return errors.New("slide services must be provided")
	case d.Partners == nil || d.Content == nil || d.Schedule == nil:
		return errors.New("portal services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(storageOrigin(deps.Bucket)))
	if cfg.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}

	registerHealthRoutes(r, deps)
	registerFileRoutes(r, deps.Bucket)

	requireSession := middleware.RequireSession(deps.Codec)
	requireAdmin := middleware.RequireAdmin(deps.Codec, deps.Authorizer)

	api := r.Group("/api")
	admin := api.Group("/admin", requireAdmin)

	registerAuthRoutes(api, deps)
	registerPitchDeckRoutes(api, requireSession, requireAdmin, deps)
	registerPartnerRoutes(api, admin, requireSession, deps)
	registerContentRoutes(api, admin, requireSession, deps)
	registerScheduleRoutes(admin, deps)
	registerAuditRoutes(admin, deps)

	if deps.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, realtime.StreamPitchDeck)
		api.GET("/realtime", requireAdmin, realtimeHandler.Stream)
		api.GET("/realtime/:stream", requireAdmin, realtimeHandler.Stream)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// storageOrigin returns the scheme and host serving public slide URLs, or ""
// when objects are served from this origin.
func storageOrigin(bucket storage.Bucket) string {
	if bucket == nil {
		return ""
	}
	u, err := url.Parse(bucket.PublicURL("probe"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
