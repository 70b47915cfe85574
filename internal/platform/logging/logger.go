package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/johnbyeon/feelscore-sub000/internal/platform/correlation"
)

// InitLogger installs a correlation-aware slog logger as the default, writing
// to stdout. level is one of debug, info, warn, error (default info); format
// is json or text (default text).
func InitLogger(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds the logger without installing it.
func New(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler))
}
