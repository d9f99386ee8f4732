package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format string, maxSize int64) (*logger, *bytes.Buffer) {
	t.Helper()
	var console bytes.Buffer
	return &logger{
		console:      &console,
		filePath:     filepath.Join(t.TempDir(), "renamer.log"),
		maxSizeBytes: maxSize,
		format:       format,
		minLevel:     infoLevel,
	}, &console
}

func TestLevelFilter(t *testing.T) {
	l, console := newTestLogger(t, logFormatText, defaultMaxSizeBytes)
	l.logf(debugLevel, "hidden %d", 1)
	l.logf(warnLevel, "shown %d", 2)

	out := console.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, ":WARN:")
	require.Contains(t, out, "shown 2")
}

func TestJSONFormat(t *testing.T) {
	l, _ := newTestLogger(t, logFormatJSON, defaultMaxSizeBytes)
	line := l.formatLine("ts", errorLevel, "relay.Serve", "boom")

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(line), &payload))
	require.Equal(t, "ERROR", payload["level"])
	require.Equal(t, "relay.Serve", payload["caller"])
	require.Equal(t, "boom", payload["message"])
}

func TestRotation(t *testing.T) {
	l, _ := newTestLogger(t, logFormatText, 64)
	for i := 0; i < 8; i++ {
		l.logf(infoLevel, "%s", strings.Repeat("x", 20))
	}
	require.NoError(t, l.file.Close())

	entries, err := os.ReadDir(filepath.Dir(l.filePath))
	require.NoError(t, err)
	require.Greater(t, len(entries), 1)
}

func TestNextRotatedPathSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := filepath.Join(dir, "renamer_20260102_030405_1.log")
	require.NoError(t, os.WriteFile(first, nil, 0o644))

	got, err := nextRotatedPath(filepath.Join(dir, "renamer.log"), now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "renamer_20260102_030405_2.log"), got)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, debugLevel, parseLevel("debug"))
	require.Equal(t, warnLevel, parseLevel(" warning "))
	require.Equal(t, infoLevel, parseLevel(""))
}
