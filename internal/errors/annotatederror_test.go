package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test error")
	require.NotErrorIs(t, err, NewSentinel("test error"))
	wrapped := Wrap(sentinel, "render report", slog.String("stem", "20240101120000"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "render report: test error", wrapped.Error())

	var annotated *AnnotatedError
	require.True(t, As(err, &annotated))

	// Ensure log values are coming through.
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	require.Contains(t, group[sourceIdx].Value.String(), "annotatederror_test.go")
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil, "nothing happened"))
}

func TestSlogError(t *testing.T) {
	inner := New("font missing", slog.String("path", "fonts/font.ttf"))
	outer := Wrap(inner, "render pdf", slog.String("stem", "20240101120000"))

	attr := SlogError(outer)
	require.Equal(t, "error", attr.Key)
	group := attr.Value.Group()
	require.Contains(t, group, slog.String("msg", "render pdf: font missing"))
	require.Contains(t, group, slog.String("path", "fonts/font.ttf"))
	require.Contains(t, group, slog.String("stem", "20240101120000"))
}
