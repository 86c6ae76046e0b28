// Package dispatcher routes host hook calls to registered handlers by
// command name.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Event is one hook call from the host. Payload carries the decoded
// register arguments, if any.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*handlerOptions)

type handlerOptions struct {
	bufferSize int
	blocking   bool
	logged     bool
	budget     time.Duration
}

// Buffered runs the handler on its own goroutine behind a queue of the given
// size. The caller gets "queued" back immediately.
func Buffered(size int) Option {
	return func(o *handlerOptions) {
		o.bufferSize = size
	}
}

// Blocking makes a buffered handler wait for queue space instead of dropping.
func Blocking() Option {
	return func(o *handlerOptions) {
		o.blocking = true
	}
}

// Logged adds debug logging around each call.
func Logged() Option {
	return func(o *handlerOptions) {
		o.logged = true
	}
}

// Budget times each call of a frame-thread hook. Calls longer than d are
// counted and logged as slow.
func Budget(d time.Duration) Option {
	return func(o *handlerOptions) {
		o.budget = d
	}
}

// Dispatcher routes events to registered handlers. Register is not safe to
// call concurrently with Dispatch; all handlers are registered during boot.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
	slow      metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan Event
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Instruments come from the global meter, which is
// a no-op until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}
	if err := d.instrument(meter()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered hook queue"),
	)
	if err != nil {
		return fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, buf := range d.buffers {
			o.ObserveInt64(d.queueSize, int64(len(buf)), metric.WithAttributes(attribute.String("command", cmd)))
		}
		return nil
	}, d.queueSize)
	if err != nil {
		return fmt.Errorf("registering queue callback: %w", err)
	}

	if d.processed, err = m.Int64Counter(
		"dispatcher.hooks.processed",
		metric.WithDescription("Buffered hook events processed"),
	); err != nil {
		return fmt.Errorf("creating processed counter: %w", err)
	}

	if d.dropped, err = m.Int64Counter(
		"dispatcher.hooks.dropped",
		metric.WithDescription("Hook events dropped on a full queue"),
	); err != nil {
		return fmt.Errorf("creating dropped counter: %w", err)
	}

	if d.duration, err = m.Float64Histogram(
		"dispatcher.hook.duration",
		metric.WithDescription("Time spent in budgeted frame hooks"),
		metric.WithUnit("ms"),
	); err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}

	if d.slow, err = m.Int64Counter(
		"dispatcher.hooks.slow",
		metric.WithDescription("Budgeted frame hooks that ran over budget"),
	); err != nil {
		return fmt.Errorf("creating slow counter: %w", err)
	}

	return nil
}

// Register adds a handler for command. Wrappers apply inside out: the queue,
// then the frame budget, then logging.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o handlerOptions
	for _, opt := range opts {
		opt(&o)
	}

	handler := h
	if o.bufferSize > 0 {
		handler = d.withBuffer(command, o.bufferSize, o.blocking, handler)
	}
	if o.budget > 0 {
		handler = d.withBudget(command, o.budget, handler)
	}
	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Close stops accepting queued events and waits until every buffered
// handler has drained its queue. Synchronous handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	queue := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = queue
	d.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range queue {
			if _, err := h(e); err != nil {
				d.logger.Warn("Queued hook failed", "command", command, "error", err)
			}
			d.processed.Add(context.Background(), 1, attrs)
		}
	}()

	// the read lock keeps Close from closing the channel under a send
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		if blocking {
			queue <- e
			return "queued", nil
		}
		select {
		case queue <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, attrs)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) withBudget(command string, budget time.Duration, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("command", command))

	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)
		took := time.Since(start)

		d.duration.Record(context.Background(), float64(took.Microseconds())/1000, attrs)
		if took > budget {
			d.slow.Add(context.Background(), 1, attrs)
			d.logger.Warn("Frame hook over budget", "command", command, "took", took, "budget", budget)
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("Handling hook", "command", command, "payload", fmt.Sprintf("%T", e.Payload))

		result, err := h(e)
		if err != nil {
			d.logger.Error("Hook failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("Hook complete", "command", command, "duration", time.Since(start))
		}
		return result, err
	}
}
