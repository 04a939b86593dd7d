package checks

import (
	"context"
	"time"

	"github.com/baselineanalytics/portal/internal/monitoring"
	"github.com/baselineanalytics/portal/internal/storage"
)

// Storage verifies the slide bucket is reachable by re-running its idempotent Ensure.
func Storage(bucket storage.Bucket, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("storage", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if bucket == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "storage not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()
		result := monitoring.ResultFromError(bucket.Ensure(probeCtx), time.Since(start))
		if result.Status == monitoring.StatusUp {
			result.Details = bucket.Name()
		}
		return result
	})
}
