package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/api"
	"github.com/baselineanalytics/portal/internal/app"
	iauth "github.com/baselineanalytics/portal/internal/auth"
	"github.com/baselineanalytics/portal/internal/cache"
	sharedtestutil "github.com/baselineanalytics/portal/internal/database/testutil"
	"github.com/baselineanalytics/portal/internal/layout"
	"github.com/baselineanalytics/portal/internal/middleware"
	"github.com/baselineanalytics/portal/internal/ratelimit"
	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/internal/render/rendertest"
	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/internal/storage"
	"github.com/baselineanalytics/portal/pkg/response"
)

// PINs configured for every test environment.
const (
	AdminPIN    = "246810"
	InvestorPIN = "135790"
	DeckPIN     = "112233"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T          *testing.T
	DB         *gorm.DB
	Router     *gin.Engine
	Config     *app.Config
	Codec      *iauth.SessionCodec
	Bucket     *storage.FilesystemBucket
	Rasterizer *rendertest.Rasterizer
	Hub        *realtime.Hub
	Slides     *services.SlideService
	Imports    *services.DeckImportService
	Partners   *services.PartnerService

	csrfToken  string
	csrfCookie *http.Cookie
}

// EnvOption customises the configuration before the router is built.
type EnvOption func(*app.Config)

// WithCSRF enables the double-submit CSRF middleware.
func WithCSRF() EnvOption {
	return func(cfg *app.Config) { cfg.Server.CSRF.Enabled = true }
}

// WithLoginLimit overrides the login rate limit policy.
func WithLoginLimit(maxRequests int, window time.Duration) EnvOption {
	return func(cfg *app.Config) {
		cfg.Auth.LoginRateLimit.MaxRequests = maxRequests
		cfg.Auth.LoginRateLimit.Window = window
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
// The fake rasterizer renders three pages per document.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			Session: app.SessionSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			AdminPIN:    AdminPIN,
			InvestorPIN: InvestorPIN,
			DeckPIN:     DeckPIN,
			AdminSlugs:  []string{"admin"},
			LoginRateLimit: app.RateLimitSettings{
				MaxRequests: 100,
				Window:      time.Minute,
			},
		},
		Content: app.ContentConfig{Keys: []string{services.ContentKeyBOS, services.ContentKeySite}},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	codec, err := iauth.NewSessionCodec(cfg.Auth.SessionCodecConfig())
	require.NoError(t, err)
	pins, err := iauth.NewPINDirectory(cfg.Auth.PINEntries())
	require.NoError(t, err)
	authorizer := iauth.NewAuthorizer(cfg.Auth.AdminSlugs)

	store := ratelimit.NewMemoryStore(time.Minute)
	t.Cleanup(store.Close)
	limiter, err := ratelimit.New(store)
	require.NoError(t, err)

	bucket, err := storage.NewFilesystemBucket(storage.FilesystemConfig{Root: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, bucket.Ensure(context.Background()))

	hub := realtime.NewHub()
	raster := rendertest.New(3)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	slides, err := services.NewSlideService(db, bucket, hub)
	require.NoError(t, err)
	imports, err := services.NewDeckImportService(db, bucket, raster, slides, hub, services.DeckImportConfig{})
	require.NoError(t, err)
	partners, err := services.NewPartnerService(db, layout.Options{}, services.WithNetworkCache(cache.NewDatabaseStore(db), time.Minute))
	require.NoError(t, err)
	content, err := services.NewContentService(db, cfg.Content.Keys)
	require.NoError(t, err)
	schedule, err := services.NewScheduleService(db)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:         db,
		Config:     cfg,
		Codec:      codec,
		PINs:       pins,
		Authorizer: authorizer,
		Limiter:    limiter,
		Hub:        hub,
		Bucket:     bucket,
		Audit:      audit,
		Slides:     slides,
		Imports:    imports,
		Partners:   partners,
		Content:    content,
		Schedule:   schedule,
	})
	require.NoError(t, err)

	return &Env{
		T:          t,
		DB:         db,
		Router:     router,
		Config:     cfg,
		Codec:      codec,
		Bucket:     bucket,
		Rasterizer: raster,
		Hub:        hub,
		Slides:     slides,
		Imports:    imports,
		Partners:   partners,
	}
}

// SessionResult mirrors the session endpoint payload.
type SessionResult struct {
	Slug      string    `json:"slug"`
	Role      string    `json:"role"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login signs in with pin and returns the issued session cookie.
func (e *Env) Login(pin string) *http.Cookie {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/session", map[string]string{"pin": pin}, nil)
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == e.Codec.CookieName() {
			require.NotEmpty(e.T, cookie.Value)
			return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
		}
	}
	e.T.Fatalf("session cookie %q not set", e.Codec.CookieName())
	return nil
}

// AdminSession is shorthand for Login(AdminPIN).
func (e *Env) AdminSession() *http.Cookie {
	e.T.Helper()
	return e.Login(AdminPIN)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and the session cookie automatically.
func (e *Env) Request(method, path string, body any, session *http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.do(req, session, false)
}

// RawRequest sends body verbatim with the supplied content type.
func (e *Env) RawRequest(method, path, contentType string, body []byte, session *http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(e.T, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return e.do(req, session, false)
}

// Upload posts a multipart form with a single "file" part plus text fields.
func (e *Env) Upload(path, filename, contentType string, data []byte, fields map[string]string, session *http.Cookie) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	if filename != "" {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		require.NoError(e.T, err)
		_, err = part.Write(data)
		require.NoError(e.T, err)
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.do(req, session, false)
}

func (e *Env) do(req *http.Request, session *http.Cookie, skipCSRF bool) *httptest.ResponseRecorder {
	e.T.Helper()

	if session != nil {
		req.AddCookie(session)
	}
	if e.Config.Server.CSRF.Enabled && !skipCSRF && requiresCSRFAttestation(req.Method) {
		e.ensureCSRFToken()
		if e.csrfCookie != nil {
			req.AddCookie(e.csrfCookie)
		}
		if e.csrfToken != "" {
			req.Header.Set(middleware.CSRFHeaderName, e.csrfToken)
		}
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	e.captureCSRF(w.Result())
	return w
}

func (e *Env) ensureCSRFToken() {
	if e.csrfToken != "" && e.csrfCookie != nil {
		return
	}
	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(e.T, err)
	resp := e.do(req, nil, true)
	require.Equal(e.T, http.StatusOK, resp.Code, resp.Body.String())
}

func (e *Env) captureCSRF(resp *http.Response) {
	if resp == nil {
		return
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(middleware.CSRFHeaderName); token != "" {
		e.csrfToken = token
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CSRFCookieName {
			e.csrfCookie = &http.Cookie{Name: c.Name, Value: c.Value}
			break
		}
	}
}

func requiresCSRFAttestation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
