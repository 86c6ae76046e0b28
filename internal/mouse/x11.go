//go:build linux

package mouse

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xfixes"
	"github.com/jezek/xgb/xproto"
)

// X11 keycodes of the toggle keys on a standard evdev keymap.
const (
	x11KeyPause = 11 // "2"
	x11KeyMenu  = 9  // Escape
)

// Glyph indices of XC_left_ptr and its mask in the standard cursor font.
const (
	xcLeftPtr     = 68
	xcLeftPtrMask = 69
)

// x11Backend talks to the X server over a single xgb connection. xgb is safe
// for concurrent requests, so the watchdog can share the connection with the
// frame thread.
type x11Backend struct {
	conn *xgb.Conn
	root xproto.Window
	log  *slog.Logger

	arrowOnce sync.Once
	arrow     xproto.Cursor
}

// OpenPlatform connects to the X display named by $DISPLAY and initializes
// XFixes for cursor hiding.
func OpenPlatform(log *slog.Logger) (Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to open X display: %w", err)
	}

	if err := xfixes.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize XFixes: %w", err)
	}
	// the server refuses XFixes requests until a version is negotiated
	if _, err := xfixes.QueryVersion(conn, 4, 0).Reply(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to negotiate XFixes version: %w", err)
	}

	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return &x11Backend{conn: conn, root: root, log: log}, nil
}

// Name returns "x11".
func (b *x11Backend) Name() string { return "x11" }

// NeedsWatchdog is true: a stalled frame loop leaves the X cursor hidden.
func (b *x11Backend) NeedsWatchdog() bool { return true }

// Keys reads the pause and menu keys from the server keymap.
func (b *x11Backend) Keys() (Keys, error) {
	reply, err := xproto.QueryKeymap(b.conn).Reply()
	if err != nil {
		return Keys{}, err
	}
	return Keys{
		Pause: keyDown(reply.Keys, x11KeyPause),
		Menu:  keyDown(reply.Keys, x11KeyMenu),
	}, nil
}

// keyDown tests keycode code in a 32-byte QueryKeymap bitmap.
func keyDown(keymap []byte, code int) bool {
	idx := code / 8
	if idx >= len(keymap) {
		return false
	}
	return keymap[idx]&(1<<(code%8)) != 0
}

// FocusedWindow returns the input focus window, or ErrNoFocus when focus
// is none or follows the pointer.
func (b *x11Backend) FocusedWindow() (Window, error) {
	reply, err := xproto.GetInputFocus(b.conn).Reply()
	if err != nil {
		return 0, err
	}
	if reply.Focus == xproto.WindowNone || reply.Focus == xproto.InputFocusPointerRoot {
		return 0, ErrNoFocus
	}
	return Window(reply.Focus), nil
}

// ClientCenter returns the middle of w in window coordinates.
func (b *x11Backend) ClientCenter(w Window) (Point, error) {
	geo, err := xproto.GetGeometry(b.conn, xproto.Drawable(w)).Reply()
	if err != nil {
		return Point{}, err
	}
	return Point{X: int(geo.Width) / 2, Y: int(geo.Height) / 2}, nil
}

// Pointer returns the pointer position relative to w.
func (b *x11Backend) Pointer(w Window) (Point, error) {
	reply, err := xproto.QueryPointer(b.conn, xproto.Window(w)).Reply()
	if err != nil {
		return Point{}, err
	}
	if !reply.SameScreen {
		return Point{}, fmt.Errorf("pointer is on another screen")
	}
	return Point{X: int(reply.WinX), Y: int(reply.WinY)}, nil
}

// Warp moves the pointer to p inside w and waits for the server to accept it.
func (b *x11Backend) Warp(w Window, p Point) error {
	return xproto.WarpPointerChecked(b.conn, xproto.WindowNone, xproto.Window(w),
		0, 0, 0, 0, int16(p.X), int16(p.Y)).Check()
}

// HideCursor hides the cursor on the root window through XFixes.
func (b *x11Backend) HideCursor() error {
	return xfixes.HideCursorChecked(b.conn, b.root).Check()
}

// ShowCursor undoes one HideCursor.
func (b *x11Backend) ShowCursor() error {
	return xfixes.ShowCursorChecked(b.conn, b.root).Check()
}

// RestoreCursor installs the standard arrow on w. Some windowing layers set
// an invisible cursor on their window, which XFixes alone does not undo.
func (b *x11Backend) RestoreCursor(w Window) error {
	arrow, err := b.arrowCursor()
	if err != nil {
		return err
	}
	if err := xproto.ChangeWindowAttributesChecked(b.conn, xproto.Window(w),
		xproto.CwCursor, []uint32{uint32(arrow)}).Check(); err != nil {
		return err
	}
	b.conn.Sync()
	return nil
}

// arrowCursor creates the glyph cursor once per connection.
func (b *x11Backend) arrowCursor() (xproto.Cursor, error) {
	var err error
	b.arrowOnce.Do(func() {
		var font xproto.Font
		font, err = xproto.NewFontId(b.conn)
		if err != nil {
			return
		}
		const name = "cursor"
		if err = xproto.OpenFontChecked(b.conn, font, uint16(len(name)), name).Check(); err != nil {
			return
		}
		defer xproto.CloseFont(b.conn, font)

		var cursor xproto.Cursor
		cursor, err = xproto.NewCursorId(b.conn)
		if err != nil {
			return
		}
		err = xproto.CreateGlyphCursorChecked(b.conn, cursor, font, font,
			xcLeftPtr, xcLeftPtrMask,
			0, 0, 0, 0xffff, 0xffff, 0xffff).Check()
		if err != nil {
			return
		}
		b.arrow = cursor
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create arrow cursor: %w", err)
	}
	if b.arrow == 0 {
		return 0, fmt.Errorf("arrow cursor unavailable")
	}
	return b.arrow, nil
}

// Close frees the arrow cursor and closes the connection.
func (b *x11Backend) Close() error {
	if b.arrow != 0 {
		xproto.FreeCursor(b.conn, b.arrow)
	}
	b.conn.Sync()
	b.conn.Close()
	return nil
}
