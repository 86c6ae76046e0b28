// Package camera implements the first-person camera: a two-state machine
// driven from the host's camera update hooks that turns button and mouse
// input plus live player state into an eye position, rotation and field of
// view.
package camera

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.opentelemetry.io/otel/metric"

	"github.com/bkfirstperson/extension/internal/angle"
	"github.com/bkfirstperson/extension/internal/config"
)

// Status is a read-only snapshot for other goroutines.
type Status struct {
	Active       bool    `json:"active"`
	HeadTracking bool    `json:"headTracking"`
	Yaw          float32 `json:"yaw"`
	Pitch        float32 `json:"pitch"`
	Form         string  `json:"form"`
	Class        Class   `json:"class"`
	Pose         Pose    `json:"pose"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithObserver registers a receiver for transitions and poses.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// WithClock replaces the wall clock used to stamp transitions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the camera state. Every method except Status runs on the
// host frame thread.
type Controller struct {
	host     Host
	mouse    Mouse
	table    *Table
	settings func() config.Settings
	log      *slog.Logger
	observer Observer
	now      func() time.Time

	transitions metric.Int64Counter

	active             bool
	headTracking       bool
	configuredTracking bool
	yaw, pitch         float32
	prevYaw            float32
	savedFOV           float32
	lastMap            int
	lastTransformation int

	prevToggleHeld   bool
	prevTrackingHeld bool

	eyeY      lowPass
	roll      lowPass
	osc       oscillator
	synthRoll float32

	form   string
	class  Class
	pose   Pose
	status atomic.Pointer[Status]
}

// New creates an inactive controller. settings is read once per hook call,
// so configuration changes apply on the next frame.
func New(host Host, mouse Mouse, table *Table, settings func() config.Settings, opts ...Option) *Controller {
	c := &Controller{
		host:     host,
		mouse:    mouse,
		table:    table,
		settings: settings,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	counter, err := newTransitionCounter()
	if err != nil {
		c.log.Debug("Creating transition counter failed", "error", err)
	} else {
		c.transitions = counter
	}

	c.configuredTracking = settings().Camera.HeadTracking
	c.headTracking = c.configuredTracking
	c.publish()
	return c
}

// Active reports whether first person is on.
func (c *Controller) Active() bool {
	return c.active
}

// PollsMouse reports whether AfterUpdate polls the capture engine itself.
// Standalone mouse polls must be skipped then, or the second poll of the
// frame reads motion that the first warp already consumed.
func (c *Controller) PollsMouse() bool {
	return c.active && c.settings().Mouse.Enabled
}

// HeadTracking reports whether the eye follows the animated model.
func (c *Controller) HeadTracking() bool {
	return c.headTracking
}

// Angles returns the free-look yaw and pitch.
func (c *Controller) Angles() (yaw, pitch float32) {
	return c.yaw, c.pitch
}

// Status returns the latest published snapshot. Safe from any goroutine.
func (c *Controller) Status() Status {
	return *c.status.Load()
}

// ShouldLookFirstPerson replaces the game's own first-person look check. The
// vanilla look is suppressed while our camera is active.
func (c *Controller) ShouldLookFirstPerson() bool {
	if c.active {
		return false
	}
	return c.host.ButtonPressed(ButtonCUp) && c.host.CanViewFirstPerson()
}

// BeforeUpdate runs ahead of the game's camera update and handles the
// first-person and head-tracking toggles.
func (c *Controller) BeforeUpdate() {
	h := c.host
	s := c.settings()

	if s.Camera.HeadTracking != c.configuredTracking {
		c.configuredTracking = s.Camera.HeadTracking
		c.setHeadTracking(c.configuredTracking)
	}

	held := h.ButtonHeld(ButtonDUp)
	pressed := held && !c.prevToggleHeld
	c.prevToggleHeld = held

	if pressed {
		if c.active {
			c.exit(ReasonToggle)
		} else if h.CanViewFirstPerson() || c.table.IsFlight(h.BehaviorState()) {
			c.enter()
		} else {
			c.log.Debug("First person refused by host")
		}
	}

	if !c.active {
		c.prevTrackingHeld = false
		return
	}

	trackHeld := h.ButtonHeld(ButtonDDown)
	if trackHeld && !c.prevTrackingHeld {
		c.setHeadTracking(!c.headTracking)
	}
	c.prevTrackingHeld = trackHeld
}

func (c *Controller) setHeadTracking(on bool) {
	if c.headTracking == on {
		return
	}
	c.headTracking = on
	c.log.Info("Head tracking changed", "enabled", on)
	if c.active {
		c.host.SetModelVisible(on)
	}
	c.publish()
}

// Exit leaves first person if active.
func (c *Controller) Exit(reason Reason) {
	c.exit(reason)
}

// AfterUpdate runs after the game's camera update and overrides the viewport
// while first person is active.
func (c *Controller) AfterUpdate() {
	if !c.active {
		return
	}

	if reason, ok := c.autoExitReason(); ok {
		c.exit(reason)
		return
	}

	h := c.host
	s := c.settings()
	dt := h.TimeDelta()
	state := h.BehaviorState()
	flight := c.table.IsFlight(state)
	egg := c.table.IsEgg(state)
	slaved := s.Camera.Classic() || flight

	// yaw
	if slaved {
		c.yaw = h.Yaw()
	} else {
		if h.ButtonHeld(ButtonCLeft) {
			c.yaw += s.Camera.LookSpeed * dt
		}
		if h.ButtonHeld(ButtonCRight) {
			c.yaw -= s.Camera.LookSpeed * dt
		}
	}

	// pitch
	if !egg {
		if h.ButtonHeld(ButtonCUp) {
			c.pitch -= s.Camera.LookSpeed * dt
		}
		if h.ButtonHeld(ButtonCDown) {
			c.pitch += s.Camera.LookSpeed * dt
		}
	}

	c.applyMouse(s.Mouse, slaved, egg)

	c.yaw = angle.Normalize(c.yaw)
	c.pitch = angle.ClampPitch(c.pitch)

	// the game shows the model again every frame
	if !c.headTracking {
		h.SetModelVisible(false)
	}

	if egg {
		h.SetYaw(c.yaw)
	}

	cls := c.table.Classify(state, h.MovementSpeed(), s.Bob.MoveThreshold)
	profile, form := c.table.Lookup(h.Transformation(), cls, s.Forms.Overrides)
	c.form, c.class = form, cls

	eye := c.eyePosition(profile, cls, c.headTracking, s.Bob.RampSpeed, dt)

	rot := mgl32.Vec3{
		c.rotationPitch(s.Camera, flight),
		c.rotationYaw(state),
		c.rotationRoll(s.Camera, flight, dt),
	}

	fov := c.savedFOV
	if s.Camera.FOV > 0 {
		fov = s.Camera.FOV
	}

	c.prevYaw = c.yaw
	c.pose = Pose{Eye: eye, Rotation: rot, FOV: fov}

	h.SetPosition(eye)
	h.SetRotation(rot)
	h.SetFOV(fov)

	if c.observer != nil {
		c.observer.OnPose(c.pose, form, cls)
	}
	c.publish()
}

// applyMouse polls the capture engine and adds its motion to the look angles.
func (c *Controller) applyMouse(m config.MouseConfig, slaved, egg bool) {
	if !m.Enabled {
		if c.mouse.IsEnabled() {
			c.mouse.SetEnabled(false)
		}
		return
	}
	if !c.mouse.IsEnabled() {
		c.mouse.SetEnabled(true)
	}

	c.mouse.Poll()
	if !c.mouse.IsCaptured() {
		return
	}

	if !slaved {
		c.yaw -= float32(c.mouse.DeltaX()) * m.SensitivityX
	}
	if !egg {
		dy := float32(c.mouse.DeltaY()) * m.SensitivityY
		if m.InvertY {
			dy = -dy
		}
		c.pitch += dy
	}
}

func (c *Controller) rotationPitch(cc config.CameraConfig, flight bool) float32 {
	switch {
	case flight:
		return -angle.Signed(c.host.ModelPitch())
	case c.headTracking:
		mp := angle.Signed(c.host.ModelPitch())
		// large model pitch means a roll, flip or slide animation
		if mgl32.Abs(mp) > cc.ModelPitchThreshold {
			return c.pitch + mp
		}
		return c.pitch + angle.Clamp(bodyPitch(c.host, c.yaw), -cc.BodyPitchRange, cc.BodyPitchRange)
	default:
		return c.pitch
	}
}

// rotationYaw faces the camera along the player's forward vector, except in
// the rear egg-firing state which looks backwards.
func (c *Controller) rotationYaw(state int) float32 {
	if state == c.table.EggAss {
		return angle.Normalize(c.yaw)
	}
	return angle.Normalize(c.yaw + 180)
}

func (c *Controller) rotationRoll(cc config.CameraConfig, flight bool, dt float32) float32 {
	synth := c.synthRoll
	c.synthRoll = 0

	switch {
	case flight:
		var turnRate float32
		if dt > 0 {
			turnRate = angle.Delta(c.prevYaw, c.yaw) / dt
		}
		target := angle.Clamp(-turnRate*cc.FlightRollScale, -cc.FlightRollMax, cc.FlightRollMax)
		return c.roll.update(target, cc.RollSmoothSpeed, dt) + synth
	case c.headTracking:
		target := angle.Clamp(bodyRoll(c.host), -cc.BodyRollRange, cc.BodyRollRange)
		return c.roll.update(target, cc.RollSmoothSpeed, dt) + synth
	default:
		c.roll.zero()
		return synth
	}
}

func (c *Controller) publish() {
	c.status.Store(&Status{
		Active:       c.active,
		HeadTracking: c.headTracking,
		Yaw:          c.yaw,
		Pitch:        c.pitch,
		Form:         c.form,
		Class:        c.class,
		Pose:         c.pose,
	})
}
