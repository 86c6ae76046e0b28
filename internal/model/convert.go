package model

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/bkfirstperson/extension/pkg/core"
)

// settingsToJSON converts a settings snapshot to datatypes.JSON for DB storage.
func settingsToJSON(settings map[string]any) datatypes.JSON {
	if len(settings) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// FromCoreSession converts a core.Session to a GORM Session. A zero EndTime
// stays NULL.
func FromCoreSession(s core.Session) Session {
	m := Session{
		UUID:             s.UUID,
		StartTime:        s.StartTime,
		ExtensionVersion: s.ExtensionVersion,
		MouseBackend:     s.MouseBackend,
		CameraMode:       s.CameraMode,
		Settings:         settingsToJSON(s.Settings),
	}
	m.ID = s.ID
	if !s.EndTime.IsZero() {
		end := s.EndTime
		m.EndTime = &end
	}
	return m
}

// FromCorePose converts a core.PoseSample to a GORM PoseSample.
func FromCorePose(p core.PoseSample) PoseSample {
	return PoseSample{
		Time:           p.Time,
		SessionID:      p.SessionID,
		Frame:          p.Frame,
		MapID:          p.MapID,
		Transformation: p.Transformation,
		Form:           p.Form,
		Class:          p.Class,
		EyeX:           p.Eye.X,
		EyeY:           p.Eye.Y,
		EyeZ:           p.Eye.Z,
		Pitch:          p.Rotation.X,
		Yaw:            p.Rotation.Y,
		Roll:           p.Rotation.Z,
		FOV:            p.FOV,
		MouseCaptured:  p.MouseCaptured,
	}
}

// FromCoreTransition converts a core.Transition to a GORM Transition.
func FromCoreTransition(t core.Transition) Transition {
	return Transition{
		Time:           t.Time,
		SessionID:      t.SessionID,
		Frame:          t.Frame,
		Entered:        t.Entered,
		Reason:         t.Reason,
		MapID:          t.MapID,
		Transformation: t.Transformation,
		Yaw:            t.Yaw,
		Pitch:          t.Pitch,
	}
}
