package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlogLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	logger.Info("assignment skipped", "reason", "already-claimed", "item", "issue-42")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "assignment skipped", entry["msg"])
	require.Equal(t, "already-claimed", entry["reason"])
	require.Equal(t, "issue-42", entry["item"])
}

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := NewSlog(slog.New(handler))

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}

func TestNopLogger_DiscardsEverything(t *testing.T) {
	logger := NewNop()

	// Must not panic, and Fatal must not exit.
	logger.Debug("msg")
	logger.Info("msg", "k", "v")
	logger.Warn("msg")
	logger.Error("msg")
	logger.Fatal("msg")
}
