// Package memory keeps camera telemetry in memory and exports each session
// to a JSON file when it ends.
package memory

import (
	"errors"
	"sync"

	"github.com/bkfirstperson/extension/internal/config"
	"github.com/bkfirstperson/extension/pkg/core"
)

var errNoSession = errors.New("no session started")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	poses       []core.PoseSample
	transitions []core.Transition

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poses = nil
	b.transitions = nil
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s

	b.poses = nil
	b.transitions = nil
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return errNoSession
	}
	if s != nil {
		b.session.EndTime = s.EndTime
	}
	err := b.exportJSON()
	b.session = nil
	return err
}

// RecordPose records a camera pose sample
func (b *Backend) RecordPose(p *core.PoseSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return errNoSession
	}
	b.poses = append(b.poses, *p)
	return nil
}

// RecordTransition records an enter or exit
func (b *Backend) RecordTransition(t *core.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return errNoSession
	}
	b.transitions = append(b.transitions, *t)
	return nil
}

// Counts returns how many poses and transitions the current session holds.
func (b *Backend) Counts() (poses, transitions int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.poses), len(b.transitions)
}

// ExportedFilePath returns the file written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
