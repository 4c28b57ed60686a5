package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerFormatsPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Output: &buf}))

	log.Info("Trade completed",
		slog.String("type", "trade"),
		slog.String("session_id", "abc"),
		slog.String("status", "done"))

	out := buf.String()
	assert.Contains(t, out, "[TradeBot]")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "[TRD] Trade completed [Status: done]")
	assert.Contains(t, out, "session_id")
	assert.NotContains(t, out, "type=")
}

func TestHandlerErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Output: &buf}))

	log.Error("Query failed",
		slog.String("type", "db"),
		slog.String("error_location", "repo.go:42"),
		slog.Any("error", errors.New("boom")))

	assert.Contains(t, buf.String(), "[DB] Query failed (repo.go:42): boom")
}

func TestHandlerLevelAndSkips(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Output: &buf, Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("Locking buckets for route")
	assert.Empty(t, buf.String())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "WARN")
}

func TestHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(Options{Output: &buf})).With(slog.String("shard", "0")).WithGroup("gw")

	log.Info("Connected", slog.Int("seq", 3))

	out := buf.String()
	assert.Contains(t, out, "gw.shard")
	assert.Contains(t, out, "gw.seq")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	h := New(Options{Format: "JSON", Output: &buf})

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "ready", 0)
	r.AddAttrs(slog.String("type", "sys"))
	require.NoError(t, h.Handle(context.Background(), r))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ready", line["msg"])
	assert.Equal(t, "sys", line["type"])
}

func TestNewDefaultsToInfo(t *testing.T) {
	h := New(Options{Output: &bytes.Buffer{}})
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}
