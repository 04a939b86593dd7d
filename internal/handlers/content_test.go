package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/handlers/testutil"
)

type contentPayload struct {
	Key      string          `json:"key"`
	Data     json.RawMessage `json:"data"`
	Rendered json.RawMessage `json:"rendered"`
	Version  int             `json:"version"`
}

func TestContentSaveAndRead(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.AdminSession()
	investor := env.Login(testutil.InvestorPIN)

	w := env.Request(http.MethodGet, "/api/content/bos", nil, investor)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	body := []byte(`{"mission_md":"**Grow** <script>alert(1)</script>","pillars":[{"title":"Ops","body_md":"- one"}]}`)
	w = env.RawRequest(http.MethodPut, "/api/admin/content/bos", "application/json", body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.RawRequest(http.MethodPut, "/api/admin/content/bos", "application/json", body, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/content/bos", nil, investor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var doc contentPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &doc)
	require.Equal(t, "bos", doc.Key)
	require.Equal(t, 2, doc.Version)

	var rendered map[string]any
	require.NoError(t, json.Unmarshal(doc.Rendered, &rendered))
	html, ok := rendered["mission_html"].(string)
	require.True(t, ok)
	require.Contains(t, html, "<strong>Grow</strong>")
	require.NotContains(t, html, "<script>")
	pillars := rendered["pillars"].([]any)
	require.Contains(t, pillars[0].(map[string]any)["body_html"], "<li>one</li>")
}

func TestContentRejectsInvalidDocuments(t *testing.T) {
	env := testutil.NewEnv(t)
	admin := env.AdminSession()

	w := env.RawRequest(http.MethodPut, "/api/admin/content/bos", "application/json", []byte(`[1,2,3]`), admin)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.RawRequest(http.MethodPut, "/api/admin/content/bos", "application/json", []byte(`{not json`), admin)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = env.RawRequest(http.MethodPut, "/api/admin/content/secrets", "application/json", []byte(`{}`), admin)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	w = env.RawRequest(http.MethodPut, "/api/admin/content/site-content", "application/json", []byte(`{}`), env.Login(testutil.InvestorPIN))
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestContentKeysListsConfiguredDocuments(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/content", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodGet, "/api/content", nil, env.Login(testutil.DeckPIN))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Keys []string `json:"keys"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &payload)
	require.ElementsMatch(t, []string{"bos", "site-content"}, payload.Keys)
}
