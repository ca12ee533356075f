package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/nearmiss/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := logging.WithAttrs(context.Background(), slog.String("request_id", "abc"))
	ctx = logging.WithAttrs(ctx, slog.String("uri", "/submit"))
	logger.With(slog.String("source", "test")).LogAttrs(ctx, slog.LevelInfo, "rendered report")

	out := buf.String()
	require.Contains(t, out, "request_id=abc")
	require.Contains(t, out, "uri=/submit")
	require.Contains(t, out, "source=test")
}

func TestWithAttrsDoesNotShareBackingArray(t *testing.T) {
	base := logging.WithAttrs(context.Background(), slog.String("a", "1"))
	first := logging.WithAttrs(base, slog.String("b", "2"))
	second := logging.WithAttrs(base, slog.String("c", "3"))

	require.Equal(t, []slog.Attr{slog.String("a", "1"), slog.String("b", "2")}, logging.Attrs(first))
	require.Equal(t, []slog.Attr{slog.String("a", "1"), slog.String("c", "3")}, logging.Attrs(second))
}
