package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultCacheSpec          = "@hourly"
	defaultAuditSpec          = "@daily"
	defaultHistorySpec        = "@daily"
)

// ExpiredPurger removes entries whose TTL has elapsed.
type ExpiredPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance tasks such as purging expired
// cache rows and enforcing audit and schedule history retention.
type Cleaner struct {
	cache            ExpiredPurger
	audit            *services.AuditService
	schedule         *services.ScheduleService
	cron             *cron.Cron
	now              func() time.Time
	log              *zap.Logger
	auditRetention   int
	historyRetention int

	cacheSchedule   string
	auditSchedule   string
	historySchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention cutoffs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCache enables the expired cache entry purge.
func WithCache(store ExpiredPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = store
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.auditRetention = days
		}
	}
}

// WithScheduleHistory enables pruning of update schedule snapshots older
// than days. Zero keeps history forever.
func WithScheduleHistory(schedule *services.ScheduleService, days int) Option {
	return func(cleaner *Cleaner) {
		cleaner.schedule = schedule
		cleaner.historyRetention = days
	}
}

// WithCacheSchedule overrides the cron specification for cache cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:           audit,
		now:             time.Now,
		auditRetention:  defaultAuditRetentionDays,
		cacheSchedule:   defaultCacheSpec,
		auditSchedule:   defaultAuditSpec,
		historySchedule: defaultHistorySpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.cache != nil || c.auditEnabled() || c.historyEnabled()
}

func (c *Cleaner) auditEnabled() bool {
	return c.audit != nil && c.auditRetention > 0
}

func (c *Cleaner) historyEnabled() bool {
	return c.schedule != nil && c.historyRetention > 0
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.auditEnabled() {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.auditRetention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.historyEnabled() {
		if _, err := c.cron.AddFunc(c.historySchedule, func() {
			if _, err := c.pruneHistory(context.Background()); err != nil {
				c.log.Warn("schedule history cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.cache != nil {
		if _, err := c.purgeCache(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.auditEnabled() {
		if _, err := c.audit.CleanupOlderThan(ctx, c.auditRetention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.historyEnabled() {
		if _, err := c.pruneHistory(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	removed, err := c.cache.DeleteExpired(ctx)
	if err == nil && removed > 0 {
		c.log.Debug("expired cache entries removed", zap.Int64("count", removed))
	}
	return removed, err
}

func (c *Cleaner) pruneHistory(ctx context.Context) (int64, error) {
	cutoff := c.now().AddDate(0, 0, -c.historyRetention)
	removed, err := c.schedule.CleanupHistoryOlderThan(ctx, cutoff)
	if err == nil && removed > 0 {
		c.log.Info("schedule history pruned", zap.Int64("count", removed))
	}
	return removed, err
}
