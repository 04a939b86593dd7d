package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/pkg/metrics"
)

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.PATCH("/api/partners/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.CollectAndCount(metrics.APILatency)

	for _, path := range []string{"/api/partners/1", "/api/partners/2", "/random/a", "/random/b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, path, nil))
	}

	// One series for the templated route and one for every unmatched path.
	require.Equal(t, before+2, testutil.CollectAndCount(metrics.APILatency))
	require.Zero(t, testutil.ToFloat64(metrics.InFlightRequests))
}
