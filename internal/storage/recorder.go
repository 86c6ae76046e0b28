package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bkfirstperson/extension/internal/camera"
	"github.com/bkfirstperson/extension/internal/dispatcher"
	"github.com/bkfirstperson/extension/internal/session"
	"github.com/bkfirstperson/extension/pkg/core"
)

// Dispatcher commands carrying telemetry from the frame thread to the
// backend.
const (
	CommandPose       = ":TELEMETRY:POSE:"
	CommandTransition = ":TELEMETRY:TRANSITION:"
)

// Recorder is a camera.Observer that samples poses and forwards them, with
// every transition, to a Backend through buffered dispatcher handlers so
// the frame thread never waits on I/O.
type Recorder struct {
	backend     Backend
	dispatch    func(dispatcher.Event) (any, error)
	sessions    *session.Context
	sampleEvery uint
	captured    func() bool
	log         *slog.Logger
	now         func() time.Time

	// frame thread only
	frame          uint
	mapID          int
	transformation int
	dropped        uint
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	SampleEvery int
	QueueSize   int
	// Captured reports whether the mouse is captured, stored with each sample.
	Captured func() bool
	Logger   *slog.Logger
}

// NewRecorder registers the telemetry handlers on d and returns the
// observer to hand to the camera controller.
func NewRecorder(d *dispatcher.Dispatcher, backend Backend, sessions *session.Context, cfg RecorderConfig) *Recorder {
	r := &Recorder{
		backend:     backend,
		dispatch:    d.Dispatch,
		sessions:    sessions,
		sampleEvery: 1,
		captured:    cfg.Captured,
		log:         cfg.Logger,
		now:         time.Now,
	}
	if cfg.SampleEvery > 1 {
		r.sampleEvery = uint(cfg.SampleEvery)
	}
	if r.captured == nil {
		r.captured = func() bool { return false }
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 1024
	}

	d.Register(CommandPose, r.handlePose, dispatcher.Buffered(queue))
	d.Register(CommandTransition, r.handleTransition, dispatcher.Buffered(64), dispatcher.Logged())
	return r
}

// Begin starts a session on the backend and records its assigned ID.
func (r *Recorder) Begin(s *core.Session) error {
	if err := r.backend.StartSession(s); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	r.sessions.SetID(s.ID)
	r.log.Info("Telemetry session started", "id", s.ID, "uuid", s.UUID)
	return nil
}

// Finish ends the current session and closes the backend. Call after the
// dispatcher has been closed so every queued record is written first.
func (r *Recorder) Finish() error {
	var endErr error
	if s, ok := r.sessions.End(); ok {
		if err := r.backend.EndSession(&s); err != nil {
			endErr = fmt.Errorf("ending session: %w", err)
		}
		if exp, ok := r.backend.(Exporter); ok && exp.ExportedFilePath() != "" {
			r.log.Info("Telemetry exported", "path", exp.ExportedFilePath())
		}
	}
	if err := r.backend.Close(); err != nil && endErr == nil {
		endErr = fmt.Errorf("closing backend: %w", err)
	}
	if r.dropped > 0 {
		r.log.Warn("Telemetry samples dropped", "count", r.dropped)
	}
	return endErr
}

// OnTransition implements camera.Observer.
func (r *Recorder) OnTransition(t camera.Transition) {
	r.mapID, r.transformation = t.MapID, t.Transformation

	rec := &core.Transition{
		SessionID:      r.sessions.ID(),
		Time:           t.Time,
		Frame:          r.frame,
		Entered:        t.Entered,
		Reason:         string(t.Reason),
		MapID:          t.MapID,
		Transformation: t.Transformation,
		Yaw:            t.Yaw,
		Pitch:          t.Pitch,
	}
	if _, err := r.dispatch(dispatcher.Event{Command: CommandTransition, Payload: rec, Timestamp: t.Time}); err != nil {
		r.log.Warn("Dropping transition record", "reason", t.Reason, "error", err)
	}
}

// OnPose implements camera.Observer. Only every sampleEvery-th pose is kept.
func (r *Recorder) OnPose(p camera.Pose, form string, class camera.Class) {
	r.frame++
	if r.frame%r.sampleEvery != 0 {
		return
	}

	now := r.now()
	rec := &core.PoseSample{
		SessionID:      r.sessions.ID(),
		Time:           now,
		Frame:          r.frame,
		MapID:          r.mapID,
		Transformation: r.transformation,
		Form:           form,
		Class:          string(class),
		Eye:            core.Vec3{X: p.Eye.X(), Y: p.Eye.Y(), Z: p.Eye.Z()},
		Rotation:       core.Vec3{X: p.Rotation.X(), Y: p.Rotation.Y(), Z: p.Rotation.Z()},
		FOV:            p.FOV,
		MouseCaptured:  r.captured(),
	}
	if _, err := r.dispatch(dispatcher.Event{Command: CommandPose, Payload: rec, Timestamp: now}); err != nil {
		r.dropped++
		if r.dropped == 1 {
			r.log.Warn("Telemetry queue full, dropping samples", "error", err)
		}
	}
}

func (r *Recorder) handlePose(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(*core.PoseSample)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return nil, r.backend.RecordPose(p)
}

func (r *Recorder) handleTransition(e dispatcher.Event) (any, error) {
	t, ok := e.Payload.(*core.Transition)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", e.Payload)
	}
	return nil, r.backend.RecordTransition(t)
}
