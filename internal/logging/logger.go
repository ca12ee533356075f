package logging

import (
	"io"
	"log/slog"
)

// NewLogger creates an info level text logger writing to w that includes the context attributes.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelInfo,
		ReplaceAttr: nil,
	})))
}
