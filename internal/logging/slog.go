package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// indirection for tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and GELF output.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// Option adjusts a Setup call.
type Option func(*setupOptions)

type setupOptions struct {
	graylogAddr string
	context     ContextProvider
}

// WithGraylog ships every record to a GELF UDP endpoint.
func WithGraylog(addr string) Option {
	return func(o *setupOptions) {
		o.graylogAddr = addr
	}
}

// WithContext injects attributes from p into every record.
func WithContext(p ContextProvider) Option {
	return func(o *setupOptions) {
		o.context = p
	}
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel maps a config or host level name to a slog level. Unknown names
// log at info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system. Records go to file when given,
// otherwise to stdout; the host console is not ours to fill once a session
// log exists. If provider is nil, OTel logging is disabled. A failing
// Graylog endpoint is reported on the returned error and skipped.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) error {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	lvl := parseLevel(level)
	m.logProvider = provider
	handlerOpts := handlerOptions(lvl)

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("fpcam", otelslog.WithLoggerProvider(provider)))
	}

	var gelfErr error
	if o.graylogAddr != "" {
		w, err := gelf.NewWriter(o.graylogAddr)
		if err != nil {
			gelfErr = fmt.Errorf("failed to connect to graylog at %s: %w", o.graylogAddr, err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		}
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if o.context != nil {
		handler = NewContextHandler(handler, o.context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level, "graylog", o.graylogAddr != "" && gelfErr == nil)
	return gelfErr
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog records a line forwarded from the game side, tagged with where it
// came from.
func (m *SlogManager) WriteLog(origin, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "origin", origin)
}
