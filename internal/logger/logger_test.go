package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledDiscards(t *testing.T) {
	require.NoError(t, Init(Options{Enabled: false}))
	assert.False(t, L.Enabled(t.Context(), slog.LevelError))
}

func TestInit_WriterText(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, Level: slog.LevelDebug}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Debug("heap initialized", "strategy", "fixed", "size", 4096)
	assert.Contains(t, out.String(), "heap initialized")
	assert.Contains(t, out.String(), "strategy=fixed")
}

func TestInit_WriterJSONRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Init(Options{Enabled: true, Writer: &out, JSON: true, Level: slog.LevelWarn}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Info("dropped")
	Warn("kept", "addr", "0x1000")
	assert.NotContains(t, out.String(), "dropped")
	assert.Contains(t, out.String(), `"msg":"kept"`)
}

func TestInit_LogDirRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, logPrefix+time.Now().AddDate(0, 0, -(retentionDays+5)).Format("2006-01-02")+logSuffix)
	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o600))

	require.NoError(t, Init(Options{Enabled: true, LogDir: dir}))
	t.Cleanup(func() { _ = Init(Options{}) })
	Info("hello")

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "expired log should be removed")
	_, err = os.Stat(unrelated)
	assert.NoError(t, err, "unrelated files are left alone")

	today := filepath.Join(dir, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	_, err = os.Stat(today)
	assert.NoError(t, err, "today's log file should exist")
}
