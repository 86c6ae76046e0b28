package mouse

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu sync.Mutex

	keys     Keys
	focus    Window
	center   Point
	pointer  Point
	watchdog bool

	pointerErr error
	hideErr    error

	hidden   bool
	hides    int
	shows    int
	restores int
	warps    []Point
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		focus:   42,
		center:  Point{X: 400, Y: 300},
		pointer: Point{X: 400, Y: 300},
	}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) NeedsWatchdog() bool { return f.watchdog }

func (f *fakeBackend) Keys() (Keys, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keys, nil
}

func (f *fakeBackend) FocusedWindow() (Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.focus == 0 {
		return 0, ErrNoFocus
	}
	return f.focus, nil
}

func (f *fakeBackend) ClientCenter(Window) (Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.center, nil
}

func (f *fakeBackend) Pointer(Window) (Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointer, f.pointerErr
}

func (f *fakeBackend) Warp(_ Window, p Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warps = append(f.warps, p)
	f.pointer = p
	return nil
}

func (f *fakeBackend) HideCursor() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hideErr != nil {
		return f.hideErr
	}
	f.hidden = true
	f.hides++
	return nil
}

func (f *fakeBackend) ShowCursor() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden = false
	f.shows++
	return nil
}

func (f *fakeBackend) RestoreCursor(Window) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restores++
	return nil
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) set(fn func(*fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) isHidden() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hidden
}

// fakeClock is advanced explicitly by tests.
type fakeClock struct {
	ms atomic.Int64
}

func newFakeClock() *fakeClock {
	c := &fakeClock{}
	c.ms.Store(1_000_000)
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.UnixMilli(c.ms.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.ms.Add(d.Milliseconds())
}

func newTestEngine(t *testing.T, b *fakeBackend, clock *fakeClock) *Engine {
	t.Helper()
	e := New(b, WithClock(clock.Now), WithWatchdogInterval(5*time.Millisecond))
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestPoll_CapturesDeltaAndWarpsToCenter(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)

	b.set(func(f *fakeBackend) { f.pointer = Point{X: 410, Y: 295} })
	e.Poll()

	assert.True(t, e.IsCaptured())
	assert.Equal(t, 10, e.DeltaX())
	assert.Equal(t, -5, e.DeltaY())
	assert.True(t, b.isHidden())
	assert.Equal(t, []Point{{X: 400, Y: 300}}, b.warps)

	// pointer now sits on the center, so the next frame reads no motion
	clock.Advance(16 * time.Millisecond)
	e.Poll()
	assert.Equal(t, 0, e.DeltaX())
	assert.Equal(t, 0, e.DeltaY())
	assert.Equal(t, 1, b.hides, "hide must be idempotent")
}

func TestPoll_CapturedImpliesHidden(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)

	b.set(func(f *fakeBackend) {
		f.hideErr = errors.New("hide refused")
		f.pointer = Point{X: 420, Y: 300}
	})
	e.Poll()

	assert.False(t, e.IsCaptured())
	assert.Equal(t, 0, e.DeltaX())
	assert.False(t, b.isHidden())
}

func TestPoll_DisabledNeverCaptures(t *testing.T) {
	b := newFakeBackend()
	e := newTestEngine(t, b, newFakeClock())

	b.set(func(f *fakeBackend) { f.pointer = Point{X: 500, Y: 500} })
	e.Poll()

	assert.False(t, e.IsCaptured())
	assert.Equal(t, 0, e.DeltaX())
	assert.Empty(t, b.warps)
}

func TestSetEnabledFalse_ClearsStateIdempotently(t *testing.T) {
	b := newFakeBackend()
	e := newTestEngine(t, b, newFakeClock())
	e.SetEnabled(true)
	b.set(func(f *fakeBackend) { f.pointer = Point{X: 401, Y: 301} })
	e.Poll()
	require.True(t, e.IsCaptured())

	e.SetEnabled(false)
	assert.False(t, e.IsEnabled())
	assert.False(t, e.IsCaptured())
	assert.Equal(t, 0, e.DeltaX())
	assert.Equal(t, 0, e.DeltaY())
	assert.False(t, b.isHidden())
	user, menu := e.Paused()
	assert.False(t, user)
	assert.False(t, menu)

	shows := b.shows
	e.SetEnabled(false)
	assert.False(t, e.IsCaptured())
	assert.Equal(t, shows, b.shows, "second disable must not touch the cursor again")
}

func TestPoll_PauseToggleOnDownEdgeOnly(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)

	frame := func(down bool) {
		b.set(func(f *fakeBackend) { f.keys.Pause = down })
		clock.Advance(16 * time.Millisecond)
		e.Poll()
	}

	frame(true)
	user, _ := e.Paused()
	assert.True(t, user)
	assert.False(t, e.IsCaptured())

	// holding the key does not toggle again
	for i := 0; i < 10; i++ {
		frame(true)
	}
	user, _ = e.Paused()
	assert.True(t, user)

	frame(false)
	frame(true)
	user, _ = e.Paused()
	assert.False(t, user)
	assert.True(t, e.IsCaptured())
}

func TestPaused_SafeWhilePolling(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)

	stop := make(chan struct{})
	var reads atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			e.Paused()
			reads.Add(1)
		}
	}()

	for i := 0; i < 200; i++ {
		b.set(func(f *fakeBackend) {
			f.keys.Pause = i%2 == 0
			f.keys.Menu = i%4 == 0
		})
		clock.Advance(16 * time.Millisecond)
		e.Poll()
	}
	close(stop)
	wg.Wait()

	assert.Positive(t, reads.Load())
	user, _ := e.Paused()
	assert.False(t, user, "an even number of pause presses leaves capture unpaused")
}

func TestPoll_MenuPauseClearsAfterGap(t *testing.T) {
	b := newFakeBackend()
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)

	b.set(func(f *fakeBackend) { f.keys.Menu = true })
	clock.Advance(16 * time.Millisecond)
	e.Poll()
	b.set(func(f *fakeBackend) { f.keys.Menu = false })
	clock.Advance(16 * time.Millisecond)
	e.Poll()

	_, menu := e.Paused()
	require.True(t, menu)
	assert.False(t, e.IsCaptured())

	// a short gap keeps the pause
	clock.Advance(MenuGap)
	e.Poll()
	_, menu = e.Paused()
	assert.True(t, menu)

	// the host itself paused and resumed
	clock.Advance(MenuGap + time.Millisecond)
	e.Poll()
	_, menu = e.Paused()
	assert.False(t, menu)
	assert.True(t, e.IsCaptured())
}

func TestPoll_FocusLossReleases(t *testing.T) {
	b := newFakeBackend()
	e := newTestEngine(t, b, newFakeClock())
	e.SetEnabled(true)
	e.Poll()
	require.True(t, e.IsCaptured())

	b.set(func(f *fakeBackend) { f.focus = 0 })
	e.Poll()
	assert.False(t, e.IsCaptured())
	assert.False(t, b.isHidden())
}

func TestPoll_PointerFailureReleases(t *testing.T) {
	b := newFakeBackend()
	e := newTestEngine(t, b, newFakeClock())
	e.SetEnabled(true)
	e.Poll()
	require.True(t, b.isHidden())

	b.set(func(f *fakeBackend) { f.pointerErr = errors.New("other screen") })
	e.Poll()
	assert.False(t, e.IsCaptured())
	assert.False(t, b.isHidden())
	assert.Equal(t, 0, e.DeltaX())
}

func TestForceShowCursor_WinsOverCapture(t *testing.T) {
	b := newFakeBackend()
	e := newTestEngine(t, b, newFakeClock())
	e.SetEnabled(true)
	e.Poll()
	require.True(t, e.IsCaptured())

	e.ForceShowCursor()
	assert.False(t, e.IsCaptured())
	assert.False(t, b.isHidden())
	assert.Equal(t, 1, b.restores)

	e.ForceShowCursor()
	assert.Equal(t, 1, b.shows, "show is idempotent")
}

func TestDegradedEngine(t *testing.T) {
	e := New(nil)
	defer e.Close()

	e.SetEnabled(true)
	e.Poll()
	e.ForceShowCursor()

	assert.False(t, e.Available())
	assert.Equal(t, "none", e.BackendName())
	assert.False(t, e.IsCaptured())
	assert.Equal(t, 0, e.DeltaX())
	assert.Equal(t, 0, e.DeltaY())
	assert.NoError(t, e.Close())
}

func TestWatchdog_RestoresCursorAfterStall(t *testing.T) {
	b := newFakeBackend()
	b.watchdog = true
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)
	e.Poll()
	require.True(t, b.isHidden())

	// frame loop stops; wall time keeps going
	clock.Advance(StallThreshold + 50*time.Millisecond)

	assert.Eventually(t, func() bool {
		return !b.isHidden()
	}, time.Second, 5*time.Millisecond)
	assert.False(t, e.IsCaptured())

	b.mu.Lock()
	assert.Equal(t, 1, b.restores)
	b.mu.Unlock()

	// the next frame hides it again
	e.Poll()
	assert.True(t, b.isHidden())
	assert.True(t, e.IsCaptured())
}

func TestWatchdog_IgnoresHealthyLoop(t *testing.T) {
	b := newFakeBackend()
	b.watchdog = true
	clock := newFakeClock()
	e := newTestEngine(t, b, clock)
	e.SetEnabled(true)
	e.Poll()

	for i := 0; i < 20; i++ {
		clock.Advance(16 * time.Millisecond)
		e.Poll()
		time.Sleep(2 * time.Millisecond)
	}
	assert.True(t, b.isHidden())
	assert.True(t, e.IsCaptured())
}

func TestClose_ShowsCursorAndClosesBackendOnce(t *testing.T) {
	b := newFakeBackend()
	b.watchdog = true
	e := New(b, WithWatchdogInterval(5*time.Millisecond))
	e.SetEnabled(true)
	e.Poll()
	require.True(t, b.isHidden())

	require.NoError(t, e.Close())
	assert.False(t, b.isHidden())
	assert.True(t, b.closed)
	assert.False(t, e.IsCaptured())

	require.NoError(t, e.Close())
}
