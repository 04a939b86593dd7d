package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newCSRFRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CSRF())
	r.GET("/api/auth/session", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/pitch-deck/upload", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func issueCSRF(t *testing.T, r *gin.Engine) (*http.Cookie, string) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))
	require.Equal(t, http.StatusOK, w.Code)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == CSRFCookieName {
			token := w.Header().Get(CSRFHeaderName)
			require.Equal(t, cookie.Value, token)
			require.False(t, cookie.HttpOnly)
			require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
			return cookie, token
		}
	}
	t.Fatal("csrf cookie not issued")
	return nil, ""
}

func TestCSRFHeaderToken(t *testing.T) {
	r := newCSRFRouter()
	cookie, token := issueCSRF(t, r)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"matching", token, http.StatusNoContent},
		{"missing", "", http.StatusForbidden},
		{"mismatched", token + "x", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/pitch-deck/upload", nil)
			req.AddCookie(cookie)
			if tc.header != "" {
				req.Header.Set(CSRFHeaderName, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Code)
		})
	}
}

func TestCSRFAcceptsMultipartFormField(t *testing.T) {
	r := newCSRFRouter()
	cookie, token := issueCSRF(t, r)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField(CSRFFormField, token))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pitch-deck/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCSRFRejectsWithoutCookie(t *testing.T) {
	r := newCSRFRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/pitch-deck/upload", nil)
	req.Header.Set(CSRFHeaderName, "forged")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
