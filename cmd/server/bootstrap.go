package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/api"
	"github.com/baselineanalytics/portal/internal/app"
	"github.com/baselineanalytics/portal/internal/app/maintenance"
	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/cache"
	"github.com/baselineanalytics/portal/internal/database"
	"github.com/baselineanalytics/portal/internal/layout"
	"github.com/baselineanalytics/portal/internal/ratelimit"
	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/internal/render"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/logger"
)

const (
	rateLimitSweepInterval = time.Minute
	cleanerStopTimeout     = 10 * time.Second
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB        *gorm.DB
	Redis     *cache.RedisStore
	RateStore *ratelimit.MemoryStore
	Cleaner   *maintenance.Cleaner
	Hub       *realtime.Hub
	Router    *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, generated map[string]bool, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	// A generated secret is only kept when no instance has persisted one yet,
	// so sessions survive restarts.
	if generated[app.SessionSecretKey] {
		secret, err := database.EnsureSessionSecret(ctx, stack.DB, cfg.Auth.Session.Secret)
		if err != nil {
			return nil, fmt.Errorf("persist session secret: %w", err)
		}
		cfg.Auth.Session.Secret = secret
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	var sharedCache cache.Store = dbStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			sharedCache = stack.Redis
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	var limiterStore ratelimit.Store
	switch cfg.Auth.RateLimitStore() {
	case app.RateLimitStoreCache:
		limiterStore = ratelimit.NewCacheStore(sharedCache)
	default:
		stack.RateStore = ratelimit.NewMemoryStore(rateLimitSweepInterval)
		limiterStore = stack.RateStore
	}
	limiter, err := ratelimit.New(limiterStore)
	if err != nil {
		return nil, fmt.Errorf("initialise rate limiter: %w", err)
	}

	codec, err := iauth.NewSessionCodec(cfg.Auth.SessionCodecConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise session codec: %w", err)
	}

	pins, err := iauth.NewPINDirectory(cfg.Auth.PINEntries())
	if err != nil {
		return nil, fmt.Errorf("initialise pin directory: %w", err)
	}
	if pins.Len() == 0 {
		log.Warn("no PINs configured; logins will fail until auth.pins or auth.*_pin is set")
	}
	authorizer := iauth.NewAuthorizer(cfg.Auth.AdminSlugs)

	bucket, err := cfg.Storage.NewBucket(cfg.Server.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialise storage: %w", err)
	}
	if err := bucket.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure storage bucket: %w", err)
	}

	hub := realtime.NewHub(cfg.Server.PublicBaseURL)
	stack.Hub = hub

	auditSvc, err := services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}
	slideSvc, err := services.NewSlideService(stack.DB, bucket, hub)
	if err != nil {
		return nil, fmt.Errorf("initialise slide service: %w", err)
	}
	importSvc, err := services.NewDeckImportService(stack.DB, bucket, render.NewFitzRasterizer(), slideSvc, hub, cfg.Deck.ImportConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise deck import service: %w", err)
	}
	partnerSvc, err := services.NewPartnerService(stack.DB, layout.Options{}, services.WithNetworkCache(sharedCache, cfg.Cache.PartnerNetworkTTL()))
	if err != nil {
		return nil, fmt.Errorf("initialise partner service: %w", err)
	}
	contentSvc, err := services.NewContentService(stack.DB, cfg.Content.Keys)
	if err != nil {
		return nil, fmt.Errorf("initialise content service: %w", err)
	}
	scheduleSvc, err := services.NewScheduleService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise schedule service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(auditSvc,
		maintenance.WithCache(dbStore),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithScheduleHistory(scheduleSvc, cfg.Maintenance.ScheduleHistoryRetentionDays),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	deps := api.Dependencies{
		DB:         stack.DB,
		Config:     cfg,
		Codec:      codec,
		PINs:       pins,
		Authorizer: authorizer,
		Limiter:    limiter,
		Hub:        hub,
		Bucket:     bucket,
		Audit:      auditSvc,
		Slides:     slideSvc,
		Imports:    importSvc,
		Partners:   partnerSvc,
		Content:    contentSvc,
		Schedule:   scheduleSvc,
	}
	if stack.Redis != nil {
		deps.Redis = stack.Redis
	}
	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-time.After(cleanerStopTimeout):
			log.Warn("maintenance jobs still running at shutdown")
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Hub != nil {
		s.Hub.Close()
	}

	if s.RateStore != nil {
		s.RateStore.Close()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql":
		auth = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	dbCfg.Options = auth.Options
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
