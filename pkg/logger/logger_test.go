package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitAppliesLevel(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init(Options{Level: "debug"}))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	SetLevel("warn")
	require.False(t, Logger().Core().Enabled(zap.InfoLevel))
	require.True(t, Logger().Core().Enabled(zap.WarnLevel))
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Replace(nil) })

	require.NoError(t, Init(Options{Level: "verbose", Format: "console"}))

	core := Logger().Core()
	require.False(t, core.Enabled(zap.DebugLevel))
	require.True(t, core.Enabled(zap.InfoLevel))
}

func TestReplaceNilInstallsNop(t *testing.T) {
	Replace(nil)
	require.NotNil(t, Logger())
	require.NotPanics(t, func() { WithModule("x").Info("dropped") })
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() { Replace(nil) })
	Replace(zap.New(core))

	WithModule("deck-import").Info("module test", zap.Int("pages", 3))

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "deck-import", entries[0].ContextMap()["module"])
	require.EqualValues(t, 3, entries[0].ContextMap()["pages"])
}
