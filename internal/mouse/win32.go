//go:build windows

package mouse

import (
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Virtual-key codes of the toggle keys.
const (
	vkPause  = 0x32 // "2"
	vkEscape = 0x1B
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procGetClientRect    = user32.NewProc("GetClientRect")
	procClientToScreen   = user32.NewProc("ClientToScreen")
	procGetCursorPos     = user32.NewProc("GetCursorPos")
	procSetCursorPos     = user32.NewProc("SetCursorPos")
	procShowCursor       = user32.NewProc("ShowCursor")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procLoadCursorW      = user32.NewProc("LoadCursorW")
	procSetCursor        = user32.NewProc("SetCursor")
)

// idcArrow is the predefined arrow cursor resource id.
const idcArrow = 32512

type point struct {
	X, Y int32
}

// win32Backend works in screen coordinates throughout. The message loop runs
// on the frame thread, so a stalled frame also stalls cursor handling and no
// watchdog is needed.
type win32Backend struct {
	log *slog.Logger
}

// OpenPlatform loads user32 and verifies the procedures it needs.
func OpenPlatform(log *slog.Logger) (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("failed to load user32.dll: %w", err)
	}
	for _, p := range []*windows.LazyProc{
		procGetClientRect, procClientToScreen, procGetCursorPos, procSetCursorPos,
		procShowCursor, procGetAsyncKeyState, procLoadCursorW, procSetCursor,
	} {
		if err := p.Find(); err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p.Name, err)
		}
	}
	return &win32Backend{log: log}, nil
}

// Name returns "win32".
func (b *win32Backend) Name() string { return "win32" }

// NeedsWatchdog is false: the hidden cursor only applies over the game window.
func (b *win32Backend) NeedsWatchdog() bool { return false }

// Keys reads the pause and escape keys asynchronously.
func (b *win32Backend) Keys() (Keys, error) {
	return Keys{
		Pause: asyncKeyDown(vkPause),
		Menu:  asyncKeyDown(vkEscape),
	}, nil
}

func asyncKeyDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}

// FocusedWindow returns the foreground window, or ErrNoFocus.
func (b *win32Backend) FocusedWindow() (Window, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, ErrNoFocus
	}
	return Window(hwnd), nil
}

// ClientCenter maps the client-area center to screen space, where cursor
// positions live.
func (b *win32Backend) ClientCenter(w Window) (Point, error) {
	var rect windows.Rect
	if r, _, err := procGetClientRect.Call(uintptr(w), uintptr(unsafe.Pointer(&rect))); r == 0 {
		return Point{}, fmt.Errorf("GetClientRect: %w", err)
	}
	center := point{
		X: (rect.Right - rect.Left) / 2,
		Y: (rect.Bottom - rect.Top) / 2,
	}
	if r, _, err := procClientToScreen.Call(uintptr(w), uintptr(unsafe.Pointer(&center))); r == 0 {
		return Point{}, fmt.Errorf("ClientToScreen: %w", err)
	}
	return Point{X: int(center.X), Y: int(center.Y)}, nil
}

// Pointer returns the cursor in screen space.
func (b *win32Backend) Pointer(Window) (Point, error) {
	var p point
	if r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&p))); r == 0 {
		return Point{}, fmt.Errorf("GetCursorPos: %w", err)
	}
	return Point{X: int(p.X), Y: int(p.Y)}, nil
}

// Warp moves the cursor to screen point p.
func (b *win32Backend) Warp(_ Window, p Point) error {
	if r, _, err := procSetCursorPos.Call(uintptr(int32(p.X)), uintptr(int32(p.Y))); r == 0 {
		return fmt.Errorf("SetCursorPos: %w", err)
	}
	return nil
}

// HideCursor and ShowCursor adjust the system display counter by one step.
// The engine's hidden flag keeps the calls balanced.
func (b *win32Backend) HideCursor() error {
	procShowCursor.Call(0)
	return nil
}

func (b *win32Backend) ShowCursor() error {
	procShowCursor.Call(1)
	return nil
}

// RestoreCursor sets the standard arrow.
func (b *win32Backend) RestoreCursor(Window) error {
	h, _, err := procLoadCursorW.Call(0, idcArrow)
	if h == 0 {
		return fmt.Errorf("LoadCursorW: %w", err)
	}
	procSetCursor.Call(h)
	return nil
}

// Close is a no-op.
func (b *win32Backend) Close() error { return nil }
