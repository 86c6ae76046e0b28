package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/bkfirstperson/extension/internal/angle"
)

// bodyRoll is the lean angle across the shoulders: the arm bones' height
// difference against their horizontal separation.
func bodyRoll(s Skeleton) float32 {
	left := s.BonePosition(BoneLeftArm)
	right := s.BonePosition(BoneRightArm)

	d := left.Sub(right)
	horiz := mgl32.Vec2{d.X(), d.Z()}.Len()
	return angle.Atan2Deg(d.Y(), horiz)
}

// bodyPitch is the forward tilt of the head relative to the body, measured
// along the facing direction yaw.
func bodyPitch(s Skeleton, yaw float32) float32 {
	head := s.BonePosition(BoneHead)
	body := s.BonePosition(BoneBody)

	d := head.Sub(body)
	forward := d.X()*angle.SinDeg(yaw) + d.Z()*angle.CosDeg(yaw)
	return -angle.Atan2Deg(forward, d.Y())
}

// eyePosition computes this frame's eye for profile p and advances the
// smoothing and oscillator state.
func (c *Controller) eyePosition(p Profile, cls Class, headTracking bool, rampSpeed, dt float32) mgl32.Vec3 {
	h := c.host
	pos := h.Position()

	if !headTracking {
		c.eyeY.reset()
		c.osc.reset()
		return pos.Add(mgl32.Vec3{0, p.StaticHeight, 0})
	}

	facing := h.Yaw()
	forward := forwardVec(facing).Mul(p.Forward)

	var eye mgl32.Vec3
	switch p.Strategy {
	case StrategyHead, StrategyBone:
		var raw mgl32.Vec3
		if p.Strategy == StrategyHead {
			raw = h.HeadPosition()
		} else {
			raw = h.BonePosition(p.Bone)
		}
		if p.SmoothSpeed > 0 {
			raw[1] = c.eyeY.update(raw.Y(), p.SmoothSpeed, dt)
		} else {
			c.eyeY.reset()
		}
		eye = raw.Add(mgl32.Vec3{0, p.Height, 0}).Add(forward)
	default:
		c.eyeY.reset()
		eye = pos.Add(mgl32.Vec3{0, p.Height, 0}).Add(forward)
	}

	if !p.Motion.Active() {
		c.osc.reset()
		return eye
	}

	// bob and sway only run while moving; idle sway runs whenever selected
	moving := cls == ClassMove || cls == ClassFlight
	if p.Motion.Kind != MotionIdleSway && !moving {
		c.osc.reset()
		return eye
	}

	c.osc.advance(p.Motion.Frequency, rampSpeed, dt)
	m := c.osc.synthesize(p.Motion, rightVec(facing))
	c.synthRoll += m.roll
	return eye.Add(m.offset)
}
