package mouse

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/bkfirstperson/extension/internal/mouse"

type metrics struct {
	captures metric.Int64Counter
	rescues  metric.Int64Counter
}

// newMetrics registers the engine instruments on the global meter. A failed
// registration leaves that instrument nil, which disables it.
func newMetrics(log *slog.Logger) *metrics {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.captures, err = m.Int64Counter(
		"mouse.captures",
		metric.WithDescription("Frames in which the pointer was captured"),
	)
	if err != nil {
		log.Debug("Creating capture counter failed", "error", err)
	}

	out.rescues, err = m.Int64Counter(
		"mouse.watchdog.rescues",
		metric.WithDescription("Times the watchdog restored a cursor left hidden by a stalled frame loop"),
	)
	if err != nil {
		log.Debug("Creating rescue counter failed", "error", err)
	}
	return out
}

func (m *metrics) captured() {
	if m.captures != nil {
		m.captures.Add(context.Background(), 1)
	}
}

func (m *metrics) rescued() {
	if m.rescues != nil {
		m.rescues.Add(context.Background(), 1)
	}
}
