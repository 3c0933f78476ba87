package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "graylogic-remote"

// Logger is a slog.Logger whose entries all carry the service and
// version. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// outputs maps the logging.output setting to a writer. Anything else
// falls back to stdout; a file destination is opened by the caller and
// passed to NewWithWriter.
var outputs = map[string]io.Writer{
	"stdout":  os.Stdout,
	"stderr":  os.Stderr,
	"discard": io.Discard,
}

// New creates a Logger for the destination named in cfg.Output.
func New(cfg config.LoggingConfig, version string) *Logger {
	w, ok := outputs[strings.ToLower(cfg.Output)]
	if !ok {
		w = os.Stdout
	}
	return NewWithWriter(w, cfg, version)
}

// NewWithWriter creates a Logger writing to w in cfg.Format at cfg.Level.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)}
}

// parseLevel maps debug, warn and error to their slog levels; anything
// else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Component is shorthand for With("component", name).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the JSON-to-stdout logger used until the config is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Secret renders a credential for logs: a short prefix and the length, never the value.
func Secret(s string) string {
	const visible = 4
	if s == "" {
		return "<empty>"
	}
	if len(s) <= visible*2 {
		return "<redacted>"
	}
	return s[:visible] + "…(" + strconv.Itoa(len(s)) + ")"
}
