package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/session"
)

// Mouse is the part of the capture engine the monitor reports on.
type Mouse interface {
	BackendName() string
	IsEnabled() bool
	IsCaptured() bool
	Paused() (user, menu bool)
	LastPollAge() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Mouse    Mouse
	Camera   func() camera.Status
	Sessions *session.Context
	Logger   *slog.Logger
	Path     string
	Interval time.Duration
}

// MouseStatus is the engine section of the status file
type MouseStatus struct {
	Backend      string  `json:"backend"`
	Enabled      bool    `json:"enabled"`
	Captured     bool    `json:"captured"`
	UserPaused   bool    `json:"userPaused"`
	MenuPaused   bool    `json:"menuPaused"`
	LastPollAgoS float64 `json:"lastPollAgoS"`
}

// ProgramStatus is one snapshot written to the status file
type ProgramStatus struct {
	Time    time.Time     `json:"time"`
	Session string        `json:"session,omitempty"`
	Mouse   MouseStatus   `json:"mouse"`
	Camera  camera.Status `json:"camera"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus() ProgramStatus {
	st := ProgramStatus{Time: time.Now().UTC()}

	if m := s.deps.Mouse; m != nil {
		user, menu := m.Paused()
		st.Mouse = MouseStatus{
			Backend:      m.BackendName(),
			Enabled:      m.IsEnabled(),
			Captured:     m.IsCaptured(),
			UserPaused:   user,
			MenuPaused:   menu,
			LastPollAgoS: m.LastPollAge().Seconds(),
		}
	}
	if s.deps.Camera != nil {
		st.Camera = s.deps.Camera()
	}
	if s.deps.Sessions != nil {
		if sess, ok := s.deps.Sessions.Get(); ok {
			st.Session = sess.UUID
		}
	}
	return st
}

// Render formats a status snapshot for the status file.
func Render(st ProgramStatus) []byte {
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		out = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return append(out, '\n')
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	statusFile, err := os.Create(s.deps.Path)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		defer statusFile.Close()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "path", s.deps.Path, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			s.write(statusFile)
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

func (s *Service) write(f *os.File) {
	data := Render(s.GetProgramStatus())
	if err := f.Truncate(0); err != nil {
		s.deps.Logger.Error("Error truncating status file", "error", err)
		return
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}

// Stop stops the status monitor and waits for its last write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
