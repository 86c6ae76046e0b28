package camera

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bkfirstperson/extension/internal/angle"
)

// Reason names why first person was entered or left.
type Reason string

const (
	ReasonToggle         Reason = "toggle"
	ReasonMap            Reason = "map"
	ReasonWater          Reason = "water"
	ReasonTransformation Reason = "transformation"
	ReasonDead           Reason = "dead"
	ReasonShutdown       Reason = "shutdown"
)

// Transition records one enter or exit.
type Transition struct {
	Entered        bool      `json:"entered"`
	Reason         Reason    `json:"reason"`
	MapID          int       `json:"mapId"`
	Transformation int       `json:"transformation"`
	Yaw            float32   `json:"yaw"`
	Pitch          float32   `json:"pitch"`
	Time           time.Time `json:"time"`
}

// Observer receives camera events on the frame thread. Implementations must
// not block.
type Observer interface {
	OnTransition(t Transition)
	OnPose(p Pose, form string, class Class)
}

const instrumentationName = "github.com/bkfirstperson/extension/internal/camera"

// autoExitReason reports why the current session must end, if at all.
func (c *Controller) autoExitReason() (Reason, bool) {
	h := c.host
	switch {
	case h.MapID() != c.lastMap:
		return ReasonMap, true
	case h.WaterState() != 0:
		return ReasonWater, true
	case h.Transformation() != c.lastTransformation:
		return ReasonTransformation, true
	case h.IsDead():
		return ReasonDead, true
	}
	return "", false
}

// enter switches to first person, seeding the look angles from the current
// view so the transition does not snap.
func (c *Controller) enter() {
	h := c.host
	s := c.settings()

	c.active = true
	c.savedFOV = h.FOV()
	c.yaw = angle.Normalize(h.Yaw())
	c.pitch = angle.ClampPitch(angle.Signed(h.Rotation().X()))
	c.prevYaw = c.yaw
	c.lastMap = h.MapID()
	c.lastTransformation = h.Transformation()

	if !c.headTracking {
		h.SetModelVisible(false)
	}
	if s.Mouse.Enabled {
		c.mouse.SetEnabled(true)
	}

	c.eyeY.reset()
	c.roll.reset()
	c.osc.reset()
	c.synthRoll = 0

	c.transition(true, ReasonToggle)
}

// exit leaves first person and restores what enter changed.
func (c *Controller) exit(reason Reason) {
	if !c.active {
		return
	}
	h := c.host

	c.active = false
	h.SetModelVisible(true)
	h.SetFOV(c.savedFOV)
	c.mouse.SetEnabled(false)

	c.transition(false, reason)
}

func (c *Controller) transition(entered bool, reason Reason) {
	t := Transition{
		Entered:        entered,
		Reason:         reason,
		MapID:          c.lastMap,
		Transformation: c.lastTransformation,
		Yaw:            c.yaw,
		Pitch:          c.pitch,
		Time:           c.now(),
	}

	if entered {
		c.log.Info("Entered first person",
			"map", t.MapID, "transformation", t.Transformation,
			"yaw", t.Yaw, "pitch", t.Pitch, "headTracking", c.headTracking)
	} else {
		c.log.Info("Left first person", "reason", reason, "map", t.MapID, "transformation", t.Transformation)
	}

	if c.transitions != nil {
		kind := "exit"
		if entered {
			kind = "enter"
		}
		c.transitions.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("reason", string(reason)),
		))
	}

	if c.observer != nil {
		c.observer.OnTransition(t)
	}
	c.publish()
}

func newTransitionCounter() (metric.Int64Counter, error) {
	return otel.Meter(instrumentationName).Int64Counter(
		"camera.transitions",
		metric.WithDescription("First-person enters and exits by reason"),
	)
}
