package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// hookTraceBurst caps debug hook traces per second. Frame hooks fire at the
// game's frame rate, so unsampled tracing would swamp the log.
const hookTraceBurst = 60

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger wraps logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger}
}

// NewZerolog builds the JSON logger used for hook tracing. Debug lines are
// burst-sampled; unknown levels fall back to info.
func NewZerolog(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).
		Level(lvl).
		Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BurstSampler{Burst: hookTraceBurst, Period: time.Second},
		}).
		With().Timestamp().Str("component", "dispatcher").
		Logger()
}

// Debug, Info, Warn and Error log msg with slog-style key/value pairs.
func (l *DispatcherLogger) Debug(msg string, kv ...any) { l.emit(l.logger.Debug(), msg, kv) }
func (l *DispatcherLogger) Info(msg string, kv ...any)  { l.emit(l.logger.Info(), msg, kv) }
func (l *DispatcherLogger) Warn(msg string, kv ...any)  { l.emit(l.logger.Warn(), msg, kv) }
func (l *DispatcherLogger) Error(msg string, kv ...any) { l.emit(l.logger.Error(), msg, kv) }

// emit attaches slog-style key/value pairs. Pairs with a non-string key and
// a trailing odd value are skipped.
func (l *DispatcherLogger) emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case time.Duration:
			e = e.Dur(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}
