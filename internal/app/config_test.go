package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/ratelimit"
	"github.com/baselineanalytics/portal/internal/render"
	"github.com/baselineanalytics/portal/internal/storage"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.True(t, cfg.Server.CSRF.Enabled)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.Equal(t, "require", cfg.Database.Postgres.Options["sslmode"])

	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "redis.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 3*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "session-secret", cfg.Auth.Session.Secret)
	require.Equal(t, 48*time.Hour, cfg.Auth.Session.TTL)
	require.Equal(t, "baseline_session", cfg.Auth.Session.CookieName)
	require.Equal(t, []string{"admin", "founder"}, cfg.Auth.AdminSlugs)
	require.Len(t, cfg.Auth.Pins, 1)
	require.Equal(t, "partner-fund", cfg.Auth.Pins[0].Slug)
	require.Equal(t, time.Minute, cfg.Auth.LoginRateLimit.Window)

	require.Equal(t, "supabase", cfg.Storage.Backend)
	require.Equal(t, int64(1048576), cfg.Storage.MaxFileSize)
	require.Equal(t, 30*time.Second, cfg.Storage.Supabase.Timeout)

	require.Equal(t, 1.5, cfg.Deck.RenderScale)
	require.Equal(t, 4, cfg.Deck.RenderWorkers)
	require.Equal(t, int64(10<<20), cfg.Deck.MaxSlideSize)

	require.Equal(t, []string{"bos", "site-content"}, cfg.Content.Keys)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)
	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "./data/portal.sqlite", cfg.Database.Path)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.Session.TTL)
	require.Equal(t, 5, cfg.Auth.LoginRateLimit.MaxRequests)
	require.Equal(t, 15*time.Minute, cfg.Auth.LoginRateLimit.Window)
	require.Equal(t, storage.DefaultBucket, cfg.Storage.Bucket)
	require.Equal(t, 2.0, cfg.Deck.RenderScale)
	require.Equal(t, 5*time.Minute, cfg.Cache.NetworkTTL)
	require.Equal(t, "portal:", cfg.Cache.Redis.KeyPrefix)
}

func TestCacheConfigAdapters(t *testing.T) {
	cfg := CacheConfig{
		Redis: RedisCacheConfig{
			Address:   " redis:6379 ",
			Password:  "pw",
			DB:        2,
			KeyPrefix: " staging: ",
		},
		NetworkTTL: 10 * time.Millisecond,
	}

	client := cfg.RedisClientConfig()
	require.Equal(t, "redis:6379", client.Address)
	require.Equal(t, "pw", client.Password)
	require.Equal(t, 2, client.DB)
	require.Equal(t, "staging:", client.KeyPrefix)

	require.Equal(t, time.Second, cfg.PartnerNetworkTTL())
	cfg.NetworkTTL = 0
	require.Zero(t, cfg.PartnerNetworkTTL())
	cfg.NetworkTTL = time.Hour
	require.Equal(t, time.Hour, cfg.PartnerNetworkTTL())
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("PORTAL_SERVER_PORT", "7070")
	t.Setenv("PORTAL_AUTH_SESSION_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.Session.Secret)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		Session: SessionSettings{
			Secret: "secret",
			Issuer: " issuer ",
			TTL:    time.Hour,
		},
		AdminPIN: "1111",
		DeckPIN:  "3333",
		Pins: []PINSettings{
			{Slug: "fund-a", Role: "Investor", PINHash: "$2a$10$abcdefghijklmnopqrstuv"},
		},
		LoginRateLimit: RateLimitSettings{MaxRequests: 3, Store: "CACHE"},
	}

	require.Equal(t, auth.SessionConfig{
		Secret:     "secret",
		Issuer:     "issuer",
		TTL:        time.Hour,
		CookieName: auth.DefaultCookieName,
	}, cfg.SessionCodecConfig())

	entries := cfg.PINEntries()
	require.Len(t, entries, 3)
	require.Equal(t, auth.PINEntry{Slug: "admin", Role: auth.RoleAdmin, PIN: "1111"}, entries[0])
	require.Equal(t, auth.PINEntry{Slug: "deck", Role: auth.RoleDeck, PIN: "3333"}, entries[1])
	require.Equal(t, auth.RoleInvestor, entries[2].Role)
	require.Equal(t, "fund-a", entries[2].Slug)

	policy := cfg.LoginPolicy()
	require.Equal(t, 3, policy.MaxRequests)
	require.Equal(t, ratelimit.LoginPolicy.Window, policy.Window)
	require.Equal(t, RateLimitStoreCache, cfg.RateLimitStore())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	codec := cfg.SessionCodecConfig()
	require.Equal(t, auth.DefaultSessionTTL, codec.TTL)
	require.Equal(t, auth.DefaultCookieName, codec.CookieName)
	require.Empty(t, cfg.PINEntries())
	require.Equal(t, ratelimit.LoginPolicy, cfg.LoginPolicy())
	require.Equal(t, RateLimitStoreMemory, cfg.RateLimitStore())
}

func TestStorageConfigNewBucket(t *testing.T) {
	fsCfg := StorageConfig{Backend: "filesystem", Root: t.TempDir()}
	bucket, err := fsCfg.NewBucket("https://portal.example.com/")
	require.NoError(t, err)
	require.Equal(t, storage.DefaultBucket, bucket.Name())
	require.Equal(t, "https://portal.example.com/files/pitch-deck-files/slides/a.png", bucket.PublicURL("slides/a.png"))

	supaCfg := StorageConfig{
		Backend:  "supabase",
		Bucket:   "deck-assets",
		Supabase: SupabaseSettings{URL: "https://project.supabase.co", ServiceKey: "key"},
	}
	bucket, err = supaCfg.NewBucket("")
	require.NoError(t, err)
	require.Equal(t, "deck-assets", bucket.Name())

	_, err = StorageConfig{Backend: "s3"}.NewBucket("")
	require.Error(t, err)
}

func TestDeckConfigImportConfig(t *testing.T) {
	cfg := DeckConfig{RenderScale: render.DefaultScale, RenderWorkers: 2, ThumbnailWidth: 240}
	imports := cfg.ImportConfig()
	require.Equal(t, render.DefaultScale, imports.Scale)
	require.Equal(t, 2, imports.Workers)
	require.Equal(t, 240, imports.ThumbnailWidth)
}
