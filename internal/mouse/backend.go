// Package mouse captures raw pointer motion for first-person look. Each poll
// measures how far the pointer moved from the focused window's center, warps it
// back and hides the cursor, so deltas never saturate at a screen edge.
package mouse

import "errors"

// ErrUnsupported is returned by OpenPlatform when no windowing backend exists
// for the running platform.
var ErrUnsupported = errors.New("mouse: no pointer backend for this platform")

// ErrNoFocus reports that no application window currently has input focus.
var ErrNoFocus = errors.New("mouse: no focused window")

// Window is an opaque platform window handle. Zero means none.
type Window uint64

// Point is a pointer position in the backend's coordinate space.
type Point struct {
	X, Y int
}

// Keys is the sampled state of the two capture toggle keys.
type Keys struct {
	Pause bool // user pause toggle ("2")
	Menu  bool // host menu toggle (Escape)
}

// Backend is the platform capability the Engine drives. Center, pointer and
// warp positions must share one coordinate space.
type Backend interface {
	Name() string

	Keys() (Keys, error)
	FocusedWindow() (Window, error)
	ClientCenter(w Window) (Point, error)
	Pointer(w Window) (Point, error)
	Warp(w Window, p Point) error

	HideCursor() error
	ShowCursor() error
	// RestoreCursor applies a visible arrow image on w, undoing blank cursors
	// installed by the host's own windowing layer.
	RestoreCursor(w Window) error

	// NeedsWatchdog reports whether a stalled frame loop can leave the cursor
	// hidden with no one to restore it.
	NeedsWatchdog() bool

	Close() error
}
