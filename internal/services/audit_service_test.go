package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/database/testutil"
	"github.com/baselineanalytics/portal/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Actor:     "founder",
		Role:      "admin",
		Action:    "slides.reorder",
		Resource:  "slides",
		Result:    AuditResultSuccess,
		IPAddress: "10.0.0.1",
		Metadata:  map[string]any{"count": 3},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		Action: "auth.login",
		Result: AuditResultFailure,
	}))

	logs, total, err := svc.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	filtered, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{Actor: "founder", Result: AuditResultSuccess}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "slides.reorder", filtered[0].Action)
	require.Equal(t, "admin", filtered[0].Role)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal(filtered[0].Metadata, &metadata))
	require.EqualValues(t, 3, metadata["count"])
}

func TestAuditServiceLogValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: AuditResultSuccess}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))

	_, err = NewAuditService(nil)
	require.Error(t, err)
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	oldLog := models.AuditLog{
		Action:    "old.action",
		Result:    AuditResultSuccess,
		CreatedAt: time.Now().AddDate(0, 0, -10),
	}
	require.NoError(t, db.Create(&oldLog).Error)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "new.action", Result: AuditResultSuccess}))

	ctx := context.Background()
	rows, err := svc.CleanupOlderThan(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(ctx, 0)
	require.Error(t, err)
}

func TestAuditServiceActionPrefixAndMetadataFilters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	ctx := context.Background()

	entries := []AuditEntry{
		{Action: "partner.create", Result: AuditResultSuccess, Metadata: map[string]any{"name": "Acme"}},
		{Action: "partner.delete", Result: AuditResultSuccess, Metadata: map[string]any{"name": "Beta"}},
		{Action: "slides.delete", Result: AuditResultSuccess, Metadata: map[string]any{"slide_id": "s-1"}},
	}
	for _, entry := range entries {
		require.NoError(t, svc.Log(ctx, entry))
	}

	logs, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{Action: "partner.*"}})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, log := range logs {
		require.Contains(t, log.Action, "partner.")
	}

	logs, total, err = svc.List(ctx, AuditListOptions{Filters: AuditFilters{MetadataKey: "slide_id", MetadataValue: "s-1"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "slides.delete", logs[0].Action)

	logs, total, err = svc.List(ctx, AuditListOptions{Filters: AuditFilters{Action: "content.*"}})
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, logs)
}

func TestAuditServiceTruncatesUserAgent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	ctx := context.Background()

	long := strings.Repeat("é", maxUserAgentLength+20)
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "auth.login", Result: AuditResultSuccess, UserAgent: long}))

	logs, _, err := svc.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, maxUserAgentLength, utf8.RuneCountInString(logs[0].UserAgent))
}
