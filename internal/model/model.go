package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&PoseSample{},
	&Transition{},
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one boot-to-shutdown run of the extension
type Session struct {
	gorm.Model
	UUID             string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	StartTime        time.Time      `json:"startTime" gorm:"index:idx_session_start"`
	EndTime          *time.Time     `json:"endTime"`
	ExtensionVersion string         `json:"extensionVersion" gorm:"size:64"`
	MouseBackend     string         `json:"mouseBackend" gorm:"size:32"`
	CameraMode       string         `json:"cameraMode" gorm:"size:16"`
	Settings         datatypes.JSON `json:"settings"`
	PoseSamples      []PoseSample   `json:"-"`
	Transitions      []Transition   `json:"-"`
}

func (*Session) TableName() string {
	return "sessions"
}

////////////////////////
// CAMERA MODELS
////////////////////////

// PoseSample is the applied camera pose on one sampled frame
type PoseSample struct {
	Time           time.Time `json:"time" gorm:"index:idx_pose_time"`
	SessionID      uint      `json:"sessionId" gorm:"index:idx_pose_session_id"`
	Session        Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame          uint      `json:"frame"`
	MapID          int       `json:"mapId"`
	Transformation int       `json:"transformation"`
	Form           string    `json:"form" gorm:"size:32"`
	Class          string    `json:"class" gorm:"size:16"`
	EyeX           float32   `json:"eyeX"`
	EyeY           float32   `json:"eyeY"`
	EyeZ           float32   `json:"eyeZ"`
	Pitch          float32   `json:"pitch"`
	Yaw            float32   `json:"yaw"`
	Roll           float32   `json:"roll"`
	FOV            float32   `json:"fov"`
	MouseCaptured  bool      `json:"mouseCaptured"`
}

func (*PoseSample) TableName() string {
	return "pose_samples"
}

// Transition is an enter into or exit from first person
type Transition struct {
	ID             uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time           time.Time `json:"time" gorm:"index:idx_transition_time"`
	SessionID      uint      `json:"sessionId" gorm:"index:idx_transition_session_id"`
	Session        Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame          uint      `json:"frame"`
	Entered        bool      `json:"entered"`
	Reason         string    `json:"reason" gorm:"size:32"`
	MapID          int       `json:"mapId"`
	Transformation int       `json:"transformation"`
	Yaw            float32   `json:"yaw"`
	Pitch          float32   `json:"pitch"`
}

func (*Transition) TableName() string {
	return "transitions"
}
