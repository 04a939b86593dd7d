package api_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/api"
	"github.com/baselineanalytics/portal/internal/handlers/testutil"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{
		"/api/pitch-deck/slides",
		"/api/pitch-deck/file",
		"/api/partners/network",
		"/api/content/bos",
		"/api/admin/update-schedule",
		"/api/admin/audit",
	} {
		w = env.Request(http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w = env.Request(http.MethodGet, "/api/does-not-exist", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "NOT_FOUND", testutil.DecodeResponse(t, w).Error.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)

	// Generate one login attempt so the counter is exported.
	env.AdminSession()

	w := env.Request(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	require.True(t, strings.Contains(body, "portal_auth_attempts_total"), body)
	require.True(t, strings.Contains(body, "portal_api_latency_seconds"), body)
}
