// Package websocket streams camera telemetry live to a tuning dashboard.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bkfirstperson/extension/pkg/core"
	"github.com/bkfirstperson/extension/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams sessions, poses and transitions over a WebSocket. Poses
// may be dropped under back-pressure; transitions are queued reliably;
// session start and end wait for the dashboard's ack.
type Backend struct {
	conn       *connection
	cfg        Config
	ackTimeout time.Duration
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Backend{
		conn:       newConnection(cfg.Logger),
		cfg:        cfg,
		ackTimeout: ackTimeout,
	}
}

// Init connects to the dashboard.
func (b *Backend) Init() error {
	return b.conn.open(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the dashboard.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped counts poses discarded from a full lane plus control messages that
// found no room.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartSession announces the session and waits for the ack. The dashboard
// has no ids to hand out, so the session keeps ID 0 and is keyed by UUID.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.conn.setStart(data)
	return b.conn.request(data, streaming.TypeStartSession, b.ackTimeout)
}

// EndSession sends end_session and waits for the ack, which also confirms
// every earlier message was written.
func (b *Backend) EndSession(s *core.Session) error {
	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.EndSessionPayload{
		UUID:    s.UUID,
		Dropped: b.Dropped(),
	})
	if err != nil {
		return err
	}
	err = b.conn.request(data, streaming.TypeEndSession, b.ackTimeout)
	b.conn.setStart(nil)
	return err
}

func (b *Backend) RecordPose(p *core.PoseSample) error {
	data, err := marshalEnvelope(streaming.TypePose, p)
	if err != nil {
		return err
	}
	b.conn.sendPose(data)
	return nil
}

func (b *Backend) RecordTransition(t *core.Transition) error {
	data, err := marshalEnvelope(streaming.TypeTransition, t)
	if err != nil {
		return err
	}
	return b.conn.sendControl(data)
}
