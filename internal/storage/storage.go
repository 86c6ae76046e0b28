package storage

import "github.com/bkfirstperson/extension/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Record calls arrive on the dispatcher's queue goroutine, never on the
// frame thread.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns ID to the passed pointer)
	StartSession(s *core.Session) error
	EndSession(s *core.Session) error

	// Camera recording
	RecordPose(p *core.PoseSample) error
	RecordTransition(t *core.Transition) error
}

// Exporter is an optional interface for backends that write the session to
// a file when it ends.
type Exporter interface {
	ExportedFilePath() string
}
