// Package session tracks the telemetry session shared by storage, logging
// and the status monitor.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bkfirstperson/extension/pkg/core"
)

// Context holds the current session
type Context struct {
	mu      sync.RWMutex
	session *core.Session
}

// NewContext creates a Context with no session started.
func NewContext() *Context {
	return &Context{}
}

// Start begins a new session stamped with a fresh UUID and returns it. Any
// previous session is replaced.
func (c *Context) Start(version, mouseBackend, cameraMode string, settings map[string]any) *core.Session {
	s := &core.Session{
		UUID:             uuid.New().String(),
		StartTime:        time.Now().UTC(),
		ExtensionVersion: version,
		MouseBackend:     mouseBackend,
		CameraMode:       cameraMode,
		Settings:         settings,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	return s
}

// Get returns a copy of the current session, or false before Start.
func (c *Context) Get() (core.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return core.Session{}, false
	}
	return *c.session, true
}

// SetID records the ID a storage backend assigned to the session.
func (c *Context) SetID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		c.session.ID = id
	}
}

// ID returns the storage ID of the current session, 0 if none.
func (c *Context) ID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return 0
	}
	return c.session.ID
}

// End stamps the end time and returns the finished session. The context is
// left empty.
func (c *Context) End() (core.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return core.Session{}, false
	}
	s := *c.session
	s.EndTime = time.Now().UTC()
	c.session = nil
	return s, true
}

// LogAttrs returns attributes identifying the session for log records.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	return []slog.Attr{slog.String("session", c.session.UUID)}
}
