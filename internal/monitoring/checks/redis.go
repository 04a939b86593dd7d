package checks

import (
	"context"
	"time"

	"github.com/baselineanalytics/portal/internal/monitoring"
)

// RedisPinger is satisfied by cache.RedisStore.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis probes the shared cache. A nil client means the server fell back to
// the database-backed cache, which is reported as degraded rather than down.
func Redis(client RedisPinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable; using database cache"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()
		return monitoring.ResultFromError(client.Ping(probeCtx), time.Since(start))
	})
}
