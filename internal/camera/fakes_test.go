package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/bkfirstperson/extension/internal/config"
)

type fakeHost struct {
	held    map[Button]bool
	pressed map[Button]bool
	canView bool

	pos            mgl32.Vec3
	yaw            float32
	modelPitch     float32
	transformation int
	water          int
	dead           bool
	state          int
	speed          float32
	mapID          int
	dt             float32

	head  mgl32.Vec3
	bones map[int]mgl32.Vec3

	rotation     mgl32.Vec3
	viewPos      mgl32.Vec3
	viewRot      mgl32.Vec3
	fov          float32
	modelVisible bool
	visibleCalls int
	yawSets      []float32
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		held:           map[Button]bool{},
		pressed:        map[Button]bool{},
		canView:        true,
		pos:            mgl32.Vec3{100, 0, 200},
		transformation: 1,
		state:          1,
		mapID:          5,
		dt:             1.0 / 60,
		bones:          map[int]mgl32.Vec3{},
		fov:            60,
		modelVisible:   true,
	}
}

func (h *fakeHost) ButtonHeld(b Button) bool    { return h.held[b] }
func (h *fakeHost) ButtonPressed(b Button) bool { return h.pressed[b] }
func (h *fakeHost) CanViewFirstPerson() bool    { return h.canView }
func (h *fakeHost) Position() mgl32.Vec3        { return h.pos }
func (h *fakeHost) Yaw() float32                { return h.yaw }
func (h *fakeHost) ModelPitch() float32         { return h.modelPitch }
func (h *fakeHost) Transformation() int         { return h.transformation }
func (h *fakeHost) WaterState() int             { return h.water }
func (h *fakeHost) IsDead() bool                { return h.dead }
func (h *fakeHost) BehaviorState() int          { return h.state }
func (h *fakeHost) MovementSpeed() float32      { return h.speed }
func (h *fakeHost) MapID() int                  { return h.mapID }
func (h *fakeHost) TimeDelta() float32          { return h.dt }
func (h *fakeHost) HeadPosition() mgl32.Vec3    { return h.head }
func (h *fakeHost) Rotation() mgl32.Vec3        { return h.rotation }
func (h *fakeHost) FOV() float32                { return h.fov }

func (h *fakeHost) BonePosition(bone int) mgl32.Vec3 { return h.bones[bone] }

func (h *fakeHost) SetYaw(deg float32) {
	h.yaw = deg
	h.yawSets = append(h.yawSets, deg)
}

func (h *fakeHost) SetModelVisible(v bool) {
	h.modelVisible = v
	h.visibleCalls++
}

func (h *fakeHost) SetPosition(p mgl32.Vec3) { h.viewPos = p }
func (h *fakeHost) SetRotation(r mgl32.Vec3) { h.viewRot = r }
func (h *fakeHost) SetFOV(f float32)         { h.fov = f }

type fakeMouse struct {
	enabled  bool
	captured bool
	dx, dy   int
	polls    int
}

func (m *fakeMouse) Poll() {
	m.polls++
	if !m.enabled {
		m.captured = false
	}
}
func (m *fakeMouse) DeltaX() int { return m.dx }
func (m *fakeMouse) DeltaY() int { return m.dy }
func (m *fakeMouse) SetEnabled(e bool) {
	m.enabled = e
	if !e {
		m.captured = false
		m.dx, m.dy = 0, 0
	}
}
func (m *fakeMouse) IsEnabled() bool  { return m.enabled }
func (m *fakeMouse) IsCaptured() bool { return m.captured }

// testSettings mirrors the shipped defaults.
func testSettings() config.Settings {
	return config.Settings{
		Mouse: config.MouseConfig{
			Enabled:      true,
			SensitivityX: 0.15,
			SensitivityY: 0.15,
		},
		Camera: config.CameraConfig{
			Mode:                config.ModeFree,
			LookSpeed:           120,
			ModelPitchThreshold: 10,
			BodyPitchRange:      30,
			BodyRollRange:       20,
			RollSmoothSpeed:     8,
			FlightRollScale:     0.25,
			FlightRollMax:       30,
		},
		Bob: config.BobConfig{
			RampSpeed:     2,
			MoveThreshold: 1,
		},
	}
}
