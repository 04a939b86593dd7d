package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the portal backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Deck        DeckConfig        `mapstructure:"deck"`
	Content     ContentConfig     `mapstructure:"content"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int        `mapstructure:"port"`
	LogLevel      string     `mapstructure:"log_level"`
	LogFormat     string     `mapstructure:"log_format"`
	PublicBaseURL string     `mapstructure:"public_base_url"`
	CSRF          CSRFConfig `mapstructure:"csrf"`
}

// CSRFConfig controls CSRF protection middleware.
type CSRFConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig describes cache backends.
type CacheConfig struct {
	Redis RedisCacheConfig `mapstructure:"redis"`
	// NetworkTTL bounds how long the assembled partner network stays cached.
	NetworkTTL time.Duration `mapstructure:"network_ttl"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Address   string        `mapstructure:"address"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TLS       bool          `mapstructure:"tls"`
	Timeout   time.Duration `mapstructure:"timeout"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	Session        SessionSettings   `mapstructure:"session"`
	AdminPIN       string            `mapstructure:"admin_pin"`
	InvestorPIN    string            `mapstructure:"investor_pin"`
	DeckPIN        string            `mapstructure:"deck_pin"`
	Pins           []PINSettings     `mapstructure:"pins"`
	AdminSlugs     []string          `mapstructure:"admin_slugs"`
	LoginRateLimit RateLimitSettings `mapstructure:"login_rate_limit"`
}

// SessionSettings configures the signed session cookie.
type SessionSettings struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

// PINSettings declares one PIN holder. Either pin or pin_hash must be set.
type PINSettings struct {
	Slug    string `mapstructure:"slug"`
	Role    string `mapstructure:"role"`
	PIN     string `mapstructure:"pin"`
	PINHash string `mapstructure:"pin_hash"`
}

// RateLimitSettings configures a fixed-window quota and where counters live.
// Store is "memory" or "cache" (database table, or Redis when enabled).
type RateLimitSettings struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	Store       string        `mapstructure:"store"`
}

// StorageConfig selects the object storage backend for deck files.
type StorageConfig struct {
	Backend     string           `mapstructure:"backend"`
	Bucket      string           `mapstructure:"bucket"`
	Root        string           `mapstructure:"root"`
	MaxFileSize int64            `mapstructure:"max_file_size"`
	Supabase    SupabaseSettings `mapstructure:"supabase"`
}

// SupabaseSettings holds Supabase Storage REST credentials.
type SupabaseSettings struct {
	URL        string        `mapstructure:"url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DeckConfig tunes the PDF slide extraction pipeline.
type DeckConfig struct {
	RenderScale     float64 `mapstructure:"render_scale"`
	RenderWorkers   int     `mapstructure:"render_workers"`
	MaxDocumentSize int64   `mapstructure:"max_document_size"`
	MaxSlideSize    int64   `mapstructure:"max_slide_size"`
	ThumbnailWidth  int     `mapstructure:"thumbnail_width"`
}

// ContentConfig lists the editable JSON content documents.
type ContentConfig struct {
	Keys []string `mapstructure:"keys"`
}

// MaintenanceConfig controls retention windows for background cleanup.
type MaintenanceConfig struct {
	AuditRetentionDays           int `mapstructure:"audit_retention_days"`
	ScheduleHistoryRetentionDays int `mapstructure:"schedule_history_retention_days"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("server.csrf.enabled", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/portal.sqlite")

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")
	v.SetDefault("cache.redis.key_prefix", "portal:")
	v.SetDefault("cache.network_ttl", "5m")

	v.SetDefault("auth.session.secret", "")
	v.SetDefault("auth.session.issuer", "baseline-portal")
	v.SetDefault("auth.session.ttl", "168h") // 7 days
	v.SetDefault("auth.session.cookie_name", "baseline_session")
	v.SetDefault("auth.admin_pin", "")
	v.SetDefault("auth.investor_pin", "")
	v.SetDefault("auth.deck_pin", "")
	v.SetDefault("auth.admin_slugs", []string{"admin"})
	v.SetDefault("auth.login_rate_limit.max_requests", 5)
	v.SetDefault("auth.login_rate_limit.window", "15m")
	v.SetDefault("auth.login_rate_limit.store", "memory")

	v.SetDefault("storage.backend", "filesystem")
	v.SetDefault("storage.bucket", "pitch-deck-files")
	v.SetDefault("storage.root", "./data/storage")
	v.SetDefault("storage.max_file_size", 50<<20)
	v.SetDefault("storage.supabase.url", "")
	v.SetDefault("storage.supabase.service_key", "")
	v.SetDefault("storage.supabase.timeout", "60s")

	v.SetDefault("deck.render_scale", 2.0)
	v.SetDefault("deck.render_workers", 1)
	v.SetDefault("deck.max_document_size", 50<<20)
	v.SetDefault("deck.max_slide_size", 10<<20)
	v.SetDefault("deck.thumbnail_width", 480)

	v.SetDefault("content.keys", []string{"bos", "site-content"})

	v.SetDefault("maintenance.audit_retention_days", 90)
	v.SetDefault("maintenance.schedule_history_retention_days", 0)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
