package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/bkfirstperson/extension/internal/camera"
)

// Behavior states outside the form table; they classify by speed.
const (
	stateIdle = 1
	stateWalk = 2
)

const (
	walkSpeed = 300 // units per second
	turnSpeed = 180 // degrees per second
	eyeHeight = 60
)

// world is a flat plane with one player, standing in for the game. It
// implements camera.Host.
type world struct {
	held    map[camera.Button]bool
	pressed map[camera.Button]bool

	// taken from the form table
	flightState int
	eggState    int

	pos            mgl32.Vec3
	yaw            float32
	speed          float32
	state          int
	transformation int
	water          int
	dead           bool
	mapID          int
	dt             float32
	modelVisible   bool

	viewPos mgl32.Vec3
	viewRot mgl32.Vec3
	fov     float32
}

func newWorld(t *camera.Table) *world {
	w := &world{
		held:           map[camera.Button]bool{},
		pressed:        map[camera.Button]bool{},
		state:          stateIdle,
		transformation: 1,
		mapID:          1,
		dt:             1.0 / 60,
		modelVisible:   true,
		fov:            60,
		eggState:       t.EggAss,
	}
	for state, cls := range t.States {
		if cls == camera.ClassFlight && (w.flightState == 0 || state < w.flightState) {
			w.flightState = state
		}
	}
	return w
}

// input is one frame of sandbox controls.
type input struct {
	forward, back, left, right bool
	fly, egg                   bool
}

// step advances the player and runs the game's own camera, which the
// first-person controller overrides afterwards.
func (w *world) step(in input, dt float32) {
	w.dt = dt

	if in.left {
		w.yaw += turnSpeed * dt
	}
	if in.right {
		w.yaw -= turnSpeed * dt
	}
	w.yaw = float32(math.Mod(float64(w.yaw)+360, 360))

	var move float32
	if in.forward {
		move = walkSpeed
	} else if in.back {
		move = -walkSpeed / 2
	}
	rad := float64(mgl32.DegToRad(w.yaw))
	w.pos = w.pos.Add(mgl32.Vec3{float32(math.Sin(rad)), 0, float32(math.Cos(rad))}.Mul(move * dt))
	w.speed = float32(math.Abs(float64(move))) / 10

	switch {
	case in.fly:
		w.state = w.flightState
	case in.egg:
		w.state = w.eggState
	case move != 0:
		w.state = stateWalk
	default:
		w.state = stateIdle
	}

	// third-person camera behind the player
	back := mgl32.Vec3{float32(-math.Sin(rad)), 0, float32(-math.Cos(rad))}
	w.viewPos = w.pos.Add(back.Mul(400)).Add(mgl32.Vec3{0, 200, 0})
	w.viewRot = mgl32.Vec3{15, w.yaw + 180, 0}
	w.modelVisible = true
}

func (w *world) ButtonHeld(b camera.Button) bool    { return w.held[b] }
func (w *world) ButtonPressed(b camera.Button) bool { return w.pressed[b] }
func (w *world) CanViewFirstPerson() bool           { return w.water == 0 && !w.dead }
func (w *world) Position() mgl32.Vec3               { return w.pos }
func (w *world) Yaw() float32                       { return w.yaw }
func (w *world) SetYaw(deg float32)                 { w.yaw = deg }
func (w *world) ModelPitch() float32                { return 0 }
func (w *world) Transformation() int                { return w.transformation }
func (w *world) WaterState() int                    { return w.water }
func (w *world) IsDead() bool                       { return w.dead }
func (w *world) BehaviorState() int                 { return w.state }
func (w *world) MovementSpeed() float32             { return w.speed }
func (w *world) SetModelVisible(visible bool)       { w.modelVisible = visible }
func (w *world) MapID() int                         { return w.mapID }
func (w *world) TimeDelta() float32                 { return w.dt }
func (w *world) Rotation() mgl32.Vec3               { return w.viewRot }
func (w *world) SetPosition(pos mgl32.Vec3)         { w.viewPos = pos }
func (w *world) SetRotation(rot mgl32.Vec3)         { w.viewRot = rot }
func (w *world) FOV() float32                       { return w.fov }
func (w *world) SetFOV(fov float32)                 { w.fov = fov }

func (w *world) HeadPosition() mgl32.Vec3 {
	return w.pos.Add(mgl32.Vec3{0, eyeHeight, 0})
}

func (w *world) BonePosition(bone int) mgl32.Vec3 {
	rad := float64(mgl32.DegToRad(w.yaw))
	right := mgl32.Vec3{float32(math.Cos(rad)), 0, float32(-math.Sin(rad))}
	switch bone {
	case camera.BoneHead:
		return w.HeadPosition()
	case camera.BoneLeftArm:
		return w.pos.Add(right.Mul(-20)).Add(mgl32.Vec3{0, 40, 0})
	case camera.BoneRightArm:
		return w.pos.Add(right.Mul(20)).Add(mgl32.Vec3{0, 40, 0})
	default:
		return w.pos.Add(mgl32.Vec3{0, 30, 0})
	}
}
