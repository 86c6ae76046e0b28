package recompabi

import (
	"math"
	"strconv"
	"time"

	"github.com/bkfirstperson/extension/internal/dispatcher"
)

// call dispatches cmd and returns its result. Unknown commands and handler
// errors yield nil; a hook must never fail the game's frame.
func call(cmd string, payload any) any {
	d := GetDispatcher()
	if d == nil || !d.HasHandler(cmd) {
		return nil
	}
	result, err := d.Dispatch(dispatcher.Event{
		Command:   cmd,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil
	}
	return result
}

// callInt dispatches cmd and converts the result for a return register.
func callInt(cmd string, payload any) int32 {
	return toInt32(call(cmd, payload))
}

// toInt32 converts a handler result to the value placed in r2. Booleans map
// to 0/1, wider integers saturate and floats truncate toward zero.
func toInt32(v any) int32 {
	switch n := v.(type) {
	case bool:
		if n {
			return 1
		}
		return 0
	case int:
		return saturate(int64(n))
	case int32:
		return n
	case int64:
		return saturate(n)
	case uint:
		return saturate(int64(min(uint64(n), math.MaxInt64)))
	case float32:
		return toInt32(float64(n))
	case float64:
		if math.IsNaN(n) {
			return 0
		}
		return saturate(int64(math.Max(math.Min(n, math.MaxInt32), math.MinInt32)))
	case string:
		i, err := strconv.ParseInt(n, 10, 32)
		if err != nil {
			return 0
		}
		return int32(i)
	}
	return 0
}

func saturate(n int64) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}

// signExtend widens a 32-bit result the way the runtime stores it in a
// 64-bit register.
func signExtend(v int32) uint64 {
	return uint64(int64(v))
}

// argBool reads a boolean argument register.
func argBool(r uint64) bool {
	return int32(r) != 0
}

// ConfigValue is the payload of a configuration override from the host.
type ConfigValue struct {
	Key   string
	Value float64
}

// LogLine is the payload of a log call from the host.
type LogLine struct {
	Level   int
	Message string
}

// Host log levels.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LevelName maps a host log level to the name the logging layer parses.
func LevelName(level int) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
