package camera

import "github.com/go-gl/mathgl/mgl32"

// Button is a host controller button id.
type Button int

const (
	ButtonDUp    Button = 0x4
	ButtonDDown  Button = 0x5
	ButtonCLeft  Button = 0xA
	ButtonCDown  Button = 0xB
	ButtonCUp    Button = 0xC
	ButtonCRight Button = 0xD
)

// Skeleton bones used for body roll and pitch.
const (
	BoneBody     = 5
	BoneRightArm = 7
	BoneLeftArm  = 8
	BoneHead     = 9
)

// Input is the host's button state for the current frame.
type Input interface {
	ButtonHeld(b Button) bool
	ButtonPressed(b Button) bool
}

// Player exposes the live player state.
type Player interface {
	CanViewFirstPerson() bool
	Position() mgl32.Vec3
	Yaw() float32
	// SetYaw sets both the current and the ideal facing.
	SetYaw(deg float32)
	// ModelPitch is the renderer's model pitch in [0, 360).
	ModelPitch() float32
	Transformation() int
	WaterState() int
	IsDead() bool
	BehaviorState() int
	MovementSpeed() float32
	SetModelVisible(visible bool)
}

// Skeleton exposes animated model positions.
type Skeleton interface {
	HeadPosition() mgl32.Vec3
	BonePosition(bone int) mgl32.Vec3
}

// Viewport is the render camera.
type Viewport interface {
	Rotation() mgl32.Vec3
	SetPosition(pos mgl32.Vec3)
	SetRotation(rot mgl32.Vec3)
	FOV() float32
	SetFOV(fov float32)
}

// Host is everything the controller reads from or writes to the game.
type Host interface {
	Input
	Player
	Skeleton
	Viewport
	MapID() int
	TimeDelta() float32
}

// Mouse is the capture engine as seen by the controller.
type Mouse interface {
	Poll()
	DeltaX() int
	DeltaY() int
	SetEnabled(enabled bool)
	IsEnabled() bool
	IsCaptured() bool
}

// Pose is the camera output of one frame.
type Pose struct {
	Eye      mgl32.Vec3 `json:"eye"`
	Rotation mgl32.Vec3 `json:"rotation"`
	FOV      float32    `json:"fov"`
}
