package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/database/testutil"
)

func newContentService(t *testing.T) *ContentService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewContentService(db, nil)
	require.NoError(t, err)
	return svc
}

func TestContentServiceSaveAndGet(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, ContentKeyBOS)
	require.ErrorIs(t, err, ErrContentNotFound)

	doc, err := svc.Save(ctx, ContentKeyBOS, json.RawMessage(`{"mission":"Grow","pillars":[{"name":"Focus"}]}`), "founder")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.Equal(t, "founder", doc.UpdatedBy)

	doc, err = svc.Save(ctx, ContentKeyBOS, json.RawMessage(`{"mission":"Grow faster"}`), "cofounder")
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)

	loaded, err := svc.Get(ctx, " BOS ")
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Version)
	require.Equal(t, "cofounder", loaded.UpdatedBy)
	require.JSONEq(t, `{"mission":"Grow faster"}`, string(loaded.Data))
}

func TestContentServiceRejectsUnknownKeysAndNonObjects(t *testing.T) {
	svc := newContentService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "secrets", json.RawMessage(`{}`), "founder")
	require.ErrorIs(t, err, ErrUnknownContentKey)

	_, err = svc.Get(ctx, "secrets")
	require.ErrorIs(t, err, ErrUnknownContentKey)

	for _, body := range []string{`[]`, `"text"`, `null`, `{bad`} {
		_, err = svc.Save(ctx, ContentKeySite, json.RawMessage(body), "founder")
		require.ErrorIs(t, err, ErrInvalidContent, body)
	}
}

func TestContentServiceRendersMarkdownFields(t *testing.T) {
	svc := newContentService(t)

	body := `{
		"hero": {"intro_md": "**Bold** <script>alert(1)</script>"},
		"sections": [{"body_md": "| a | b |\n|---|---|\n| 1 | 2 |"}],
		"title": "Plain"
	}`
	doc, err := svc.Save(context.Background(), ContentKeySite, json.RawMessage(body), "founder")
	require.NoError(t, err)

	var rendered map[string]any
	require.NoError(t, json.Unmarshal(doc.Rendered, &rendered))

	hero := rendered["hero"].(map[string]any)
	html := hero["intro_html"].(string)
	require.Contains(t, html, "<strong>Bold</strong>")
	require.NotContains(t, html, "<script>")
	require.Equal(t, "**Bold** <script>alert(1)</script>", hero["intro_md"])

	section := rendered["sections"].([]any)[0].(map[string]any)
	require.Contains(t, section["body_html"].(string), "<table>")
	require.Equal(t, "Plain", rendered["title"])

	var data map[string]any
	require.NoError(t, json.Unmarshal(doc.Data, &data))
	require.NotContains(t, data["hero"].(map[string]any), "intro_html")
}
