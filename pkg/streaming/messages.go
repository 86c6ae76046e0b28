// Package streaming defines the live telemetry protocol: JSON envelopes sent
// over a WebSocket to a tuning dashboard.
package streaming

import (
	"encoding/json"

	"github.com/bkfirstperson/extension/pkg/core"
)

// Envelope types sent by the extension.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypePose         = "pose"
	TypeTransition   = "transition"
)

// TypeAck is the only message the dashboard sends back.
const TypeAck = "ack"

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage confirms that the dashboard has stored everything up to and
// including a start_session or end_session.
type AckMessage struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// StartSessionPayload announces a session and the settings it runs with.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload closes a session.
type EndSessionPayload struct {
	UUID    string `json:"uuid"`
	Dropped uint64 `json:"dropped"`
}
