package mouse

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MenuGap is the poll gap after which a pending menu pause is assumed to
	// belong to a host pause that has since ended.
	MenuGap = 200 * time.Millisecond

	// WatchdogInterval is how often the watchdog samples the poll timestamp.
	WatchdogInterval = 100 * time.Millisecond

	// StallThreshold is the poll age at which the watchdog restores the cursor.
	StallThreshold = 200 * time.Millisecond
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for backend and watchdog messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithWatchdogInterval overrides the watchdog tick.
func WithWatchdogInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.watchdogInterval = d
	}
}

// Engine is the per-process capture service. Poll, the delta getters and
// SetEnabled belong to the frame thread; the watchdog and the status monitor
// only touch the atomic fields.
type Engine struct {
	backend Backend
	log     *slog.Logger
	now     func() time.Time
	metrics *metrics

	// frame thread only
	pauseWasDown bool
	menuWasDown  bool
	deltaX       int
	deltaY       int

	// shared with the watchdog and the monitor
	userPaused   atomic.Bool
	menuPaused   atomic.Bool
	enabled      atomic.Bool
	captured     atomic.Bool
	cursorHidden atomic.Bool
	lastPollMs   atomic.Int64
	focus        atomic.Uint64

	watchdogInterval time.Duration
	stop             chan struct{}
	wg               sync.WaitGroup
	closeOnce        sync.Once
}

// New creates an engine over backend and starts its watchdog when the backend
// needs one. A nil backend yields a degraded engine that never captures.
func New(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:          backend,
		log:              slog.Default(),
		now:              time.Now,
		watchdogInterval: WatchdogInterval,
		stop:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newMetrics(e.log)

	if backend == nil {
		e.log.Warn("Mouse capture unavailable, running without mouse look")
		return e
	}

	e.log.Info("Mouse capture backend ready", "backend", backend.Name(), "watchdog", backend.NeedsWatchdog())
	if backend.NeedsWatchdog() {
		e.wg.Add(1)
		go e.watchdog()
	}
	return e
}

// Available reports whether a backend connection exists.
func (e *Engine) Available() bool {
	return e.backend != nil
}

// BackendName names the active backend, or "none".
func (e *Engine) BackendName() string {
	if e.backend == nil {
		return "none"
	}
	return e.backend.Name()
}

// Poll samples the pointer once for this frame. It never blocks on the game
// and never fails: every problem resolves to "not captured, cursor shown".
func (e *Engine) Poll() {
	e.deltaX = 0
	e.deltaY = 0

	if e.backend == nil {
		return
	}

	now := e.now().UnixMilli()
	last := e.lastPollMs.Load()
	if e.menuPaused.Load() && last != 0 && time.Duration(now-last)*time.Millisecond > MenuGap {
		e.menuPaused.Store(false)
		e.log.Debug("Menu pause cleared after poll gap", "gapMs", now-last)
	}
	e.lastPollMs.Store(now)

	e.sampleToggles()

	shouldCapture := e.enabled.Load() && !e.userPaused.Load() && !e.menuPaused.Load()

	win, err := e.backend.FocusedWindow()
	if err != nil || win == 0 {
		e.release()
		return
	}
	e.focus.Store(uint64(win))

	if !shouldCapture {
		e.release()
		return
	}

	center, err := e.backend.ClientCenter(win)
	if err != nil {
		e.log.Debug("Window geometry query failed", "error", err)
		e.release()
		return
	}

	ptr, err := e.backend.Pointer(win)
	if err != nil {
		e.log.Debug("Pointer query failed", "error", err)
		e.release()
		return
	}

	e.deltaX = ptr.X - center.X
	e.deltaY = ptr.Y - center.Y

	if err := e.backend.Warp(win, center); err != nil {
		e.log.Debug("Pointer warp failed", "error", err)
	}

	if !e.hideCursor() {
		e.deltaX = 0
		e.deltaY = 0
		e.release()
		return
	}
	e.captured.Store(true)
	e.metrics.captured()
}

// sampleToggles flips the pause flags on the down edge of their keys.
func (e *Engine) sampleToggles() {
	keys, err := e.backend.Keys()
	if err != nil {
		// treat an unreadable keymap as "nothing held"
		keys = Keys{}
	}

	if keys.Pause && !e.pauseWasDown {
		paused := !e.userPaused.Load()
		e.userPaused.Store(paused)
		e.log.Debug("User pause toggled", "paused", paused)
	}
	e.pauseWasDown = keys.Pause

	if keys.Menu && !e.menuWasDown {
		paused := !e.menuPaused.Load()
		e.menuPaused.Store(paused)
		e.log.Debug("Menu pause toggled", "paused", paused)
	}
	e.menuWasDown = keys.Menu
}

// DeltaX is the horizontal motion measured by the last Poll.
func (e *Engine) DeltaX() int {
	return e.deltaX
}

// DeltaY is the vertical motion measured by the last Poll.
func (e *Engine) DeltaY() int {
	return e.deltaY
}

// SetEnabled is the camera's authoritative capture switch. Disabling clears
// both pauses and the deltas and always shows the cursor.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	if enabled {
		return
	}
	e.captured.Store(false)
	e.userPaused.Store(false)
	e.menuPaused.Store(false)
	e.deltaX = 0
	e.deltaY = 0
	if e.backend != nil {
		e.showCursor()
	}
}

// IsEnabled reports the last SetEnabled value.
func (e *Engine) IsEnabled() bool {
	return e.enabled.Load()
}

// IsCaptured reports whether the last Poll warped and hid the pointer.
func (e *Engine) IsCaptured() bool {
	return e.captured.Load()
}

// Paused reports the user and menu pause flags. Safe from any goroutine.
func (e *Engine) Paused() (user, menu bool) {
	return e.userPaused.Load(), e.menuPaused.Load()
}

// LastPollAge is the time since the last Poll, or zero if none happened yet.
func (e *Engine) LastPollAge() time.Duration {
	last := e.lastPollMs.Load()
	if last == 0 {
		return 0
	}
	return time.Duration(e.now().UnixMilli()-last) * time.Millisecond
}

// ForceShowCursor makes the cursor visible with a real arrow image. Menu hooks
// call it every frame; it overrides any capture made this frame.
func (e *Engine) ForceShowCursor() {
	if e.backend == nil {
		return
	}
	e.captured.Store(false)
	e.showCursor()
	if w := Window(e.focus.Load()); w != 0 {
		if err := e.backend.RestoreCursor(w); err != nil {
			e.log.Debug("Cursor image restore failed", "error", err)
		}
	}
}

// Close stops the watchdog, restores the cursor and releases the backend.
// The cursor is shown before the watchdog is joined and the connection is
// closed only after the join, so neither side can touch a closed backend.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.stop)
		if e.backend == nil {
			return
		}
		e.enabled.Store(false)
		e.captured.Store(false)
		e.showCursor()
		e.wg.Wait()
		err = e.backend.Close()
		e.log.Info("Mouse capture closed", "backend", e.backend.Name())
	})
	return err
}

// release marks the frame as not captured and shows the cursor.
func (e *Engine) release() {
	e.captured.Store(false)
	e.showCursor()
}

// hideCursor reports whether the cursor is hidden afterwards.
func (e *Engine) hideCursor() bool {
	if !e.cursorHidden.CompareAndSwap(false, true) {
		return true
	}
	if err := e.backend.HideCursor(); err != nil {
		e.cursorHidden.Store(false)
		e.log.Debug("Cursor hide failed", "error", err)
		return false
	}
	return true
}

func (e *Engine) showCursor() {
	if !e.cursorHidden.CompareAndSwap(true, false) {
		return
	}
	if err := e.backend.ShowCursor(); err != nil {
		e.log.Debug("Cursor show failed", "error", err)
	}
}
