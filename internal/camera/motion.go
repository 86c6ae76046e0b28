package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/bkfirstperson/extension/internal/angle"
)

// oscillator drives the synthetic motion generators.
type oscillator struct {
	phase    float32 // degrees, [0, 360)
	strength float32 // fade-in factor, [0, 1]
}

func (o *oscillator) reset() {
	o.phase = 0
	o.strength = 0
}

// advance moves the phase by freq*dt and ramps the strength toward 1.
func (o *oscillator) advance(freq, rampSpeed, dt float32) {
	o.phase = angle.Normalize(o.phase + freq*dt)
	o.strength = mgl32.Clamp(o.strength+rampSpeed*dt, 0, 1)
}

// motionOffset is the displacement one generator adds this frame.
type motionOffset struct {
	offset mgl32.Vec3
	roll   float32
}

// synthesize evaluates m at the oscillator's current phase. right is the unit
// vector to the player's right in the horizontal plane.
func (o *oscillator) synthesize(m Motion, right mgl32.Vec3) motionOffset {
	amp := m.Amplitude * o.strength
	s := angle.SinDeg(o.phase)

	switch m.Kind {
	case MotionBob:
		return motionOffset{offset: mgl32.Vec3{0, amp * s, 0}}

	case MotionSway:
		lateral := right.Mul(amp * s)
		dip := -m.Dip * o.strength * mgl32.Abs(s)
		return motionOffset{
			offset: lateral.Add(mgl32.Vec3{0, dip, 0}),
			roll:   m.Roll * o.strength * s,
		}

	case MotionIdleSway:
		// second harmonic makes the lean asymmetric
		s2 := angle.SinDeg(2*o.phase + 30)
		lateral := right.Mul(amp * (0.7*s + 0.3*s2))
		return motionOffset{offset: lateral.Add(mgl32.Vec3{0, 0.25 * amp * s2, 0})}
	}

	return motionOffset{}
}

// forwardVec is the horizontal unit vector for a facing angle.
func forwardVec(yaw float32) mgl32.Vec3 {
	return mgl32.Vec3{angle.SinDeg(yaw), 0, angle.CosDeg(yaw)}
}

// rightVec is the horizontal unit vector to the right of a facing angle.
func rightVec(yaw float32) mgl32.Vec3 {
	return mgl32.Vec3{angle.CosDeg(yaw), 0, -angle.SinDeg(yaw)}
}

// lowPass is a one-pole filter that seeds itself with its first sample.
type lowPass struct {
	value  float32
	seeded bool
}

func (f *lowPass) reset() {
	f.value = 0
	f.seeded = false
}

// update filters sample with alpha = min(1, speed*dt).
func (f *lowPass) update(sample, speed, dt float32) float32 {
	if !f.seeded {
		f.value = sample
		f.seeded = true
		return f.value
	}
	alpha := mgl32.Clamp(speed*dt, 0, 1)
	f.value += (sample - f.value) * alpha
	return f.value
}

// zero pins the filter at 0 without clearing its seed.
func (f *lowPass) zero() {
	f.value = 0
	f.seeded = true
}
