package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkfirstperson/extension/internal/angle"
	"github.com/bkfirstperson/extension/internal/config"
)

type recorder struct {
	transitions []Transition
	poses       []Pose
	forms       []string
}

func (r *recorder) OnTransition(t Transition) { r.transitions = append(r.transitions, t) }

func (r *recorder) OnPose(p Pose, form string, _ Class) {
	r.poses = append(r.poses, p)
	r.forms = append(r.forms, form)
}

type harness struct {
	host     *fakeHost
	mouse    *fakeMouse
	settings config.Settings
	rec      *recorder
	ctrl     *Controller
}

func newHarness(t *testing.T, mutate ...func(*config.Settings)) *harness {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)

	h := &harness{
		host:     newFakeHost(),
		mouse:    &fakeMouse{},
		settings: testSettings(),
		rec:      &recorder{},
	}
	for _, m := range mutate {
		m(&h.settings)
	}
	h.ctrl = New(h.host, h.mouse, table, func() config.Settings { return h.settings }, WithObserver(h.rec))
	return h
}

// frame runs both hooks once, as the host does every frame.
func (h *harness) frame() {
	h.ctrl.BeforeUpdate()
	h.ctrl.AfterUpdate()
}

// press holds b for one frame, then releases it for one frame.
func (h *harness) press(b Button) {
	h.host.held[b] = true
	h.frame()
	h.host.held[b] = false
	h.frame()
}

func TestToggle_RisingEdgeOnly(t *testing.T) {
	h := newHarness(t)

	h.host.held[ButtonDUp] = true
	for i := 0; i < 30; i++ {
		h.frame()
	}
	assert.True(t, h.ctrl.Active(), "holding enters once and stays")
	require.Len(t, h.rec.transitions, 1)

	h.host.held[ButtonDUp] = false
	h.frame()
	h.host.held[ButtonDUp] = true
	h.frame()
	assert.False(t, h.ctrl.Active())
	require.Len(t, h.rec.transitions, 2)
	assert.Equal(t, ReasonToggle, h.rec.transitions[1].Reason)
}

func TestEnter_RefusedWithoutCapability(t *testing.T) {
	h := newHarness(t)
	h.host.canView = false

	h.press(ButtonDUp)
	assert.False(t, h.ctrl.Active())

	// flight states bypass the capability check
	h.host.state = 0x24
	h.press(ButtonDUp)
	assert.True(t, h.ctrl.Active())
}

func TestEnter_SeedsFromCurrentView(t *testing.T) {
	h := newHarness(t)
	h.host.yaw = 725
	h.host.rotation = mgl32.Vec3{350, 0, 0}
	h.host.fov = 55

	h.host.held[ButtonDUp] = true
	h.ctrl.BeforeUpdate()

	yaw, pitch := h.ctrl.Angles()
	assert.InDelta(t, 5, yaw, 1e-3)
	assert.InDelta(t, -10, pitch, 1e-3)
	assert.False(t, h.host.modelVisible)
	assert.True(t, h.mouse.enabled)
}

func TestEnter_PitchSeedIsClamped(t *testing.T) {
	h := newHarness(t)
	h.host.rotation = mgl32.Vec3{100, 0, 0}

	h.host.held[ButtonDUp] = true
	h.ctrl.BeforeUpdate()

	_, pitch := h.ctrl.Angles()
	assert.Equal(t, angle.PitchMax, pitch)
}

func TestAutoExit_MapChange(t *testing.T) {
	h := newHarness(t)
	h.host.fov = 48
	h.press(ButtonDUp)
	require.True(t, h.ctrl.Active())
	assert.NotEqual(t, float32(0), h.host.fov)

	h.host.mapID = 7
	h.frame()

	assert.False(t, h.ctrl.Active())
	assert.True(t, h.host.modelVisible)
	assert.Equal(t, float32(48), h.host.fov)
	assert.False(t, h.mouse.enabled)
	last := h.rec.transitions[len(h.rec.transitions)-1]
	assert.False(t, last.Entered)
	assert.Equal(t, ReasonMap, last.Reason)
}

func TestAutoExit_Reasons(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeHost)
		want   Reason
	}{
		{"water", func(f *fakeHost) { f.water = 1 }, ReasonWater},
		{"transformation", func(f *fakeHost) { f.transformation = 2 }, ReasonTransformation},
		{"dead", func(f *fakeHost) { f.dead = true }, ReasonDead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.press(ButtonDUp)
			require.True(t, h.ctrl.Active())
			poses := len(h.rec.poses)

			tt.mutate(h.host)
			h.frame()

			assert.False(t, h.ctrl.Active())
			assert.Equal(t, tt.want, h.rec.transitions[len(h.rec.transitions)-1].Reason)
			assert.Len(t, h.rec.poses, poses, "no pose after an auto exit")
		})
	}
}

func TestExit_Shutdown(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	h.ctrl.Exit(ReasonShutdown)
	assert.False(t, h.ctrl.Active())
	assert.Equal(t, ReasonShutdown, h.rec.transitions[len(h.rec.transitions)-1].Reason)

	// a second exit is a no-op
	h.ctrl.Exit(ReasonShutdown)
	assert.Len(t, h.rec.transitions, 2)
}

func TestLook_ButtonsAtFixedRate(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	yaw0, pitch0 := h.ctrl.Angles()

	h.host.held[ButtonCLeft] = true
	h.host.held[ButtonCDown] = true
	h.frame()

	yaw, pitch := h.ctrl.Angles()
	assert.InDelta(t, angle.Normalize(yaw0+2), yaw, 1e-3)
	assert.InDelta(t, pitch0+2, pitch, 1e-3)
}

func TestLook_PitchStaysClamped(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	h.host.held[ButtonCDown] = true
	for i := 0; i < 300; i++ {
		h.frame()
		_, pitch := h.ctrl.Angles()
		require.LessOrEqual(t, pitch, angle.PitchMax)
		require.GreaterOrEqual(t, pitch, angle.PitchMin)
	}
	_, pitch := h.ctrl.Angles()
	assert.Equal(t, angle.PitchMax, pitch)
}

func TestMouse_AppliesScaledDeltas(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	yaw0, pitch0 := h.ctrl.Angles()

	h.mouse.captured = true
	h.mouse.dx, h.mouse.dy = 10, 20
	h.frame()

	yaw, pitch := h.ctrl.Angles()
	assert.InDelta(t, angle.Normalize(yaw0-1.5), yaw, 1e-3)
	assert.InDelta(t, pitch0+3, pitch, 1e-3)
}

func TestMouse_InvertY(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.Mouse.InvertY = true })
	h.press(ButtonDUp)
	_, pitch0 := h.ctrl.Angles()

	h.mouse.captured = true
	h.mouse.dy = 20
	h.frame()

	_, pitch := h.ctrl.Angles()
	assert.InDelta(t, pitch0-3, pitch, 1e-3)
}

func TestMouse_IgnoredWhenNotCaptured(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	yaw0, pitch0 := h.ctrl.Angles()

	h.mouse.dx, h.mouse.dy = 50, 50
	h.frame()

	yaw, pitch := h.ctrl.Angles()
	assert.Equal(t, yaw0, yaw)
	assert.Equal(t, pitch0, pitch)
	assert.Greater(t, h.mouse.polls, 0)
}

func TestMouse_DisabledByConfig(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	require.True(t, h.mouse.enabled)

	h.settings.Mouse.Enabled = false
	polls := h.mouse.polls
	h.frame()

	assert.False(t, h.mouse.enabled)
	assert.Equal(t, polls, h.mouse.polls)
}

func TestClassicMode_YawFollowsFacing(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.Camera.Mode = config.ModeClassic })
	h.press(ButtonDUp)

	h.host.yaw = 90
	h.host.held[ButtonCLeft] = true
	h.mouse.captured = true
	h.mouse.dx = 40
	h.frame()

	yaw, _ := h.ctrl.Angles()
	assert.InDelta(t, 90, yaw, 1e-4)
	assert.InDelta(t, 270, h.host.viewRot.Y(), 1e-4)
}

func TestEggAss_ReversedViewAndLockedPitch(t *testing.T) {
	h := newHarness(t)
	h.host.yaw = 30
	h.press(ButtonDUp)
	yaw0, pitch0 := h.ctrl.Angles()

	h.host.state = 0x0a
	h.host.held[ButtonCUp] = true
	h.mouse.captured = true
	h.mouse.dy = 40
	h.frame()

	yaw, pitch := h.ctrl.Angles()
	assert.Equal(t, pitch0, pitch, "pitch input is suppressed")
	assert.Equal(t, yaw0, yaw)
	assert.InDelta(t, angle.Normalize(yaw), h.host.viewRot.Y(), 1e-4)
	require.NotEmpty(t, h.host.yawSets)
	assert.Equal(t, yaw, h.host.yawSets[len(h.host.yawSets)-1])
}

func TestEggHead_ForwardViewAndPlayerAligned(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	h.host.state = 0x09
	h.host.held[ButtonCLeft] = true
	h.frame()

	yaw, _ := h.ctrl.Angles()
	assert.InDelta(t, angle.Normalize(yaw+180), h.host.viewRot.Y(), 1e-4)
	assert.Equal(t, yaw, h.host.yaw)
}

func TestModelHiddenEveryFrame(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	for i := 0; i < 5; i++ {
		// the game shows the model again on its own
		h.host.modelVisible = true
		h.frame()
		assert.False(t, h.host.modelVisible)
	}
}

func TestHeadTracking_ToggleFlipsVisibility(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	require.False(t, h.ctrl.HeadTracking())

	h.press(ButtonDDown)
	assert.True(t, h.ctrl.HeadTracking())
	assert.True(t, h.host.modelVisible)

	h.press(ButtonDDown)
	assert.False(t, h.ctrl.HeadTracking())
	assert.False(t, h.host.modelVisible)
}

func TestHeadTracking_ReseededFromConfig(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	h.settings.Camera.HeadTracking = true
	h.frame()
	assert.True(t, h.ctrl.HeadTracking())

	// a runtime toggle sticks until the configured value changes again
	h.press(ButtonDDown)
	assert.False(t, h.ctrl.HeadTracking())
	h.frame()
	assert.False(t, h.ctrl.HeadTracking())
}

func TestEye_StaticHeightWithoutHeadTracking(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)

	want := h.host.pos.Add(mgl32.Vec3{0, 85, 0})
	assert.InDelta(t, want.X(), h.host.viewPos.X(), 1e-4)
	assert.InDelta(t, want.Y(), h.host.viewPos.Y(), 1e-4)
	assert.InDelta(t, want.Z(), h.host.viewPos.Z(), 1e-4)
}

func TestEye_SmoothingSeededWithFirstSample(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.Camera.HeadTracking = true })
	h.host.head = mgl32.Vec3{0, 500, 0}

	h.press(ButtonDUp)
	assert.InDelta(t, 530, h.host.viewPos.Y(), 1e-3, "no jump from zero on the first frame")

	h.host.head = mgl32.Vec3{0, 560, 0}
	h.frame()
	alpha := float32(12.0 / 60)
	assert.InDelta(t, 500+60*alpha+30, h.host.viewPos.Y(), 1e-2)

	// re-entering seeds again
	h.press(ButtonDUp)
	h.press(ButtonDUp)
	assert.InDelta(t, 590, h.host.viewPos.Y(), 1e-3)
}

func TestEye_BobPhaseWraps(t *testing.T) {
	table, err := ParseTable([]byte(`
states: { eggHead: 0x09, eggAss: 0x0a }
fallback: { strategy: root, staticHeight: 10 }
forms:
  termite:
    id: 2
    base: { strategy: root, height: 20 }
    classes:
      move:
        motion: { kind: bob, frequency: 2466, amplitude: 3 }
`))
	require.NoError(t, err)

	host := newFakeHost()
	host.transformation = 2
	host.speed = 5
	s := testSettings()
	s.Camera.HeadTracking = true
	mouse := &fakeMouse{}
	c := New(host, mouse, table, func() config.Settings { return s })

	host.held[ButtonDUp] = true
	c.BeforeUpdate()

	step := float32(2466.0 / 60)
	var want float32
	for i := 0; i < 200; i++ {
		c.AfterUpdate()
		want = angle.Normalize(want + step)

		require.GreaterOrEqual(t, c.osc.phase, float32(0))
		require.Less(t, c.osc.phase, float32(360))
		require.InDelta(t, 0, angle.Delta(want, c.osc.phase), 0.05, "frame %d", i)
		require.LessOrEqual(t, c.osc.strength, float32(1))
	}
	assert.Equal(t, float32(1), c.osc.strength)

	// stopping resets the oscillator
	host.speed = 0
	c.AfterUpdate()
	assert.Equal(t, float32(0), c.osc.phase)
	assert.Equal(t, float32(0), c.osc.strength)
}

func TestFOV_ConfiguredOrSaved(t *testing.T) {
	h := newHarness(t)
	h.host.fov = 50
	h.press(ButtonDUp)
	assert.Equal(t, float32(50), h.host.fov)

	h.settings.Camera.FOV = 75
	h.frame()
	assert.Equal(t, float32(75), h.host.fov)

	h.press(ButtonDUp)
	assert.False(t, h.ctrl.Active())
	assert.Equal(t, float32(50), h.host.fov)
}

func TestRoll_FlightBanksAgainstTurn(t *testing.T) {
	h := newHarness(t)
	h.host.state = 0x24
	h.press(ButtonDUp)
	require.True(t, h.ctrl.Active())

	// turning left at 60 deg/s in flight
	for i := 0; i < 120; i++ {
		h.host.yaw = angle.Normalize(h.host.yaw + 1)
		h.frame()
	}
	// target is -(60 * 0.25) = -15
	assert.InDelta(t, -15, h.host.viewRot.Z(), 0.5)
}

func TestRoll_ZeroWithoutTrackingOrFlight(t *testing.T) {
	h := newHarness(t)
	h.press(ButtonDUp)
	h.host.held[ButtonCLeft] = true
	h.frame()
	assert.Equal(t, float32(0), h.host.viewRot.Z())
}

func TestRotationPitch_HeadTracking(t *testing.T) {
	h := newHarness(t, func(s *config.Settings) { s.Camera.HeadTracking = true })
	h.host.bones[BoneHead] = mgl32.Vec3{0, 10, 0}
	h.host.bones[BoneBody] = mgl32.Vec3{0, 0, 0}
	h.press(ButtonDUp)
	_, pitch := h.ctrl.Angles()

	// small model pitch falls back to the bone pitch, here upright
	h.host.modelPitch = 355
	h.frame()
	assert.InDelta(t, pitch, h.host.viewRot.X(), 0.3)

	// a flip shows through
	h.host.modelPitch = 300
	h.frame()
	assert.InDelta(t, pitch-60, h.host.viewRot.X(), 1e-3)
}

func TestRotationPitch_FlightFollowsModel(t *testing.T) {
	h := newHarness(t)
	h.host.state = 0x24
	h.press(ButtonDUp)

	h.host.modelPitch = 20
	h.frame()
	assert.InDelta(t, -20, h.host.viewRot.X(), 1e-4)
}

func TestShouldLookFirstPerson(t *testing.T) {
	h := newHarness(t)

	h.host.pressed[ButtonCUp] = true
	assert.True(t, h.ctrl.ShouldLookFirstPerson())

	h.host.canView = false
	assert.False(t, h.ctrl.ShouldLookFirstPerson())

	h.host.canView = true
	h.press(ButtonDUp)
	assert.False(t, h.ctrl.ShouldLookFirstPerson(), "vanilla look is off while active")
}

func TestStatus_Published(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.Status().Active)

	h.press(ButtonDUp)
	st := h.ctrl.Status()
	assert.True(t, st.Active)
	assert.Equal(t, "banjo", st.Form)
	assert.Equal(t, h.host.viewPos, st.Pose.Eye)
	assert.Equal(t, "banjo", h.rec.forms[len(h.rec.forms)-1])
}

func TestBodyRollAndPitch(t *testing.T) {
	host := newFakeHost()
	host.bones[BoneLeftArm] = mgl32.Vec3{-10, 10, 0}
	host.bones[BoneRightArm] = mgl32.Vec3{10, 0, 0}
	assert.InDelta(t, 26.565, bodyRoll(host), 0.3)

	host.bones[BoneHead] = mgl32.Vec3{0, 10, 10}
	host.bones[BoneBody] = mgl32.Vec3{0, 0, 0}
	// leaning forward along +Z while facing 0
	assert.InDelta(t, -45, bodyPitch(host, 0), 0.3)
	// facing the other way the same lean reads as backwards
	assert.InDelta(t, 45, bodyPitch(host, 180), 0.3)
}

func TestPollsMouse_OnlyWhileActiveAndEnabled(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.ctrl.PollsMouse())

	h.press(ButtonDUp)
	require.True(t, h.ctrl.Active())
	assert.True(t, h.ctrl.PollsMouse())

	polls := h.mouse.polls
	h.frame()
	assert.Equal(t, polls+1, h.mouse.polls, "one poll per frame from the camera")

	h.settings.Mouse.Enabled = false
	assert.False(t, h.ctrl.PollsMouse())

	h.settings.Mouse.Enabled = true
	h.press(ButtonDUp)
	require.False(t, h.ctrl.Active())
	assert.False(t, h.ctrl.PollsMouse())
}
