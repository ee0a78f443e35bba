package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(handler)), &buf
}

func TestSlogLogger_EmitsAllLevels(t *testing.T) {
	log, buf := newBufferLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "opening store", "path", "arcana.db")
	log.Info(ctx, "sync cycle finished", "pushed", 3)
	log.Warn(ctx, "record rejected", "table", "decks")
	log.Error(ctx, "pull failed", "err", "timeout")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="opening store"`)
	assert.Contains(t, out, "path=arcana.db")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "pushed=3")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "table=decks")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "err=timeout")
}

func TestSlogLogger_WithCarriesAttributes(t *testing.T) {
	log, buf := newBufferLogger(t)

	child := log.With("component", "engine")
	child.Info(context.Background(), "state change", "state", "pulling")

	out := buf.String()
	assert.Contains(t, out, "component=engine")
	assert.Contains(t, out, "state=pulling")

	buf.Reset()
	log.Info(context.Background(), "plain")
	assert.NotContains(t, buf.String(), "component=engine")
}
