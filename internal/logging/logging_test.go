package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	var term bytes.Buffer

	l := New("info")
	defer l.Close()

	require.NoError(t, l.Setup(dir, "scrap.log", &term))
	require.NoError(t, l.Setup(dir, "scrap.log", &term))
	assert.Equal(t, []string{SinkFile, SinkTerminal}, l.Sinks())

	l.Info("Loading CAS file")

	data, err := os.ReadFile(filepath.Join(dir, "scrap.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Loading CAS file"))
	assert.Equal(t, 1, strings.Count(term.String(), "Loading CAS file"))
}

func TestFileSinkKeepsDebug(t *testing.T) {
	dir := t.TempDir()
	var term bytes.Buffer

	l := New("info")
	defer l.Close()
	require.NoError(t, l.Setup(dir, "scrap.log", &term))

	l.Debug("request built", "cas", "64175")

	data, err := os.ReadFile(filepath.Join(dir, "scrap.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=DEBUG")
	assert.Contains(t, string(data), "cas=64175")
	assert.Empty(t, term.String())
}

func TestTerminalSinkIsMessageOnly(t *testing.T) {
	var term bytes.Buffer
	l := New("info")
	defer l.Close()
	require.NoError(t, l.Setup(t.TempDir(), "scrap.log", &term))

	l.Warn("retrying", "attempt", 1)

	out := term.String()
	assert.Contains(t, out, `msg=retrying`)
	assert.Contains(t, out, "attempt=1")
	assert.NotContains(t, out, "time=")
	assert.NotContains(t, out, "level=")
}

func TestDiscardWritesNothing(t *testing.T) {
	l := Discard()
	assert.Empty(t, l.Sinks())
	assert.False(t, l.Slog().Enabled(t.Context(), slog.LevelError))
	l.Error("dropped")
}

func TestCloseDetachesSinks(t *testing.T) {
	var term bytes.Buffer
	l := New("debug")
	require.NoError(t, l.Setup(t.TempDir(), "scrap.log", &term))
	require.NoError(t, l.Close())
	assert.Empty(t, l.Sinks())

	l.Info("after close")
	assert.NotContains(t, term.String(), "after close")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestWithSharesSinks(t *testing.T) {
	var term bytes.Buffer
	l := New("info")
	defer l.Close()

	child := l.With("cas", "64175")
	require.NoError(t, child.Setup(t.TempDir(), "scrap.log", &term))
	require.NoError(t, l.Setup(t.TempDir(), "other.log", &term))
	assert.Len(t, l.Sinks(), 2)

	child.Info("creating")
	assert.Contains(t, term.String(), "cas=64175")
}
