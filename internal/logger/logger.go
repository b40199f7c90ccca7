// Package logger configures zerolog for the service and carries the request id
// through context.Context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Pretty  bool   // console output for development
	Output  io.Writer
	Service string
	Version string
}

type requestIDKey struct{}

// New builds a zerolog logger and installs it as the global one.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	service := cfg.Service
	if service == "" {
		service = "appforge"
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()

	log.Logger = zl
	return zl
}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// FromContext returns the global logger tagged with the request id and
// operation, for use inside services.
func FromContext(ctx context.Context, operation string) zerolog.Logger {
	rid := RequestID(ctx)
	if rid == "" {
		rid = "unknown"
	}
	return log.Logger.With().
		Str("request_id", rid).
		Str("operation", operation).
		Logger()
}
