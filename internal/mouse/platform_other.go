//go:build !linux && !windows

package mouse

import "log/slog"

// OpenPlatform has no backend on this platform; the engine runs degraded.
func OpenPlatform(*slog.Logger) (Backend, error) {
	return nil, ErrUnsupported
}
