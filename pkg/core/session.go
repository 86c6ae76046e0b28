// Package core holds the backend-neutral camera telemetry records shared by
// every storage implementation.
package core

import "time"

// Vec3 is a position or an angle triple (pitch, yaw, roll) in game units.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Session is one run of the extension inside the host, from boot to
// shutdown. ID is assigned by the backend.
type Session struct {
	ID               uint           `json:"id"`
	UUID             string         `json:"uuid"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
	ExtensionVersion string         `json:"extensionVersion"`
	MouseBackend     string         `json:"mouseBackend"`
	CameraMode       string         `json:"cameraMode"`
	Settings         map[string]any `json:"settings,omitempty"`
}

// PoseSample is the camera pose applied on one frame while first person is
// active.
type PoseSample struct {
	SessionID      uint      `json:"sessionId"`
	Time           time.Time `json:"time"`
	Frame          uint      `json:"frame"`
	MapID          int       `json:"mapId"`
	Transformation int       `json:"transformation"`
	Form           string    `json:"form"`
	Class          string    `json:"class"`
	Eye            Vec3      `json:"eye"`
	Rotation       Vec3      `json:"rotation"`
	FOV            float32   `json:"fov"`
	MouseCaptured  bool      `json:"mouseCaptured"`
}

// Transition is an enter into or exit from first person.
type Transition struct {
	SessionID      uint      `json:"sessionId"`
	Time           time.Time `json:"time"`
	Frame          uint      `json:"frame"`
	Entered        bool      `json:"entered"`
	Reason         string    `json:"reason"`
	MapID          int       `json:"mapId"`
	Transformation int       `json:"transformation"`
	Yaw            float32   `json:"yaw"`
	Pitch          float32   `json:"pitch"`
}
