package pointer

import (
	"errors"
	"math"
	"testing"
)

type fakePlatform struct {
	live      ButtonSet
	capture   bool
	captures  []bool
	recenters int
	err       error
}

func (f *fakePlatform) SetCapture(enabled bool) error {
	f.captures = append(f.captures, enabled)
	if f.err != nil {
		return f.err
	}
	f.capture = enabled
	return nil
}

func (f *fakePlatform) Recenter() {
	f.recenters++
}

func (f *fakePlatform) LiveButtons() ButtonSet {
	return f.live
}

type staticSensitivity Sensitivity

func (s staticSensitivity) Sensitivity() Sensitivity {
	return Sensitivity(s)
}

func newActiveState(t *testing.T, sens Sensitivity) (*State, *fakePlatform) {
	t.Helper()
	platform := &fakePlatform{}
	s := New(platform, staticSensitivity(sens), DefaultQuantization())
	s.Activate(ModeMouse)
	if !s.Active() {
		t.Fatalf("Activate(ModeMouse) left state inactive")
	}
	return s, platform
}

func TestActivateEngagesCaptureAndRecenters(t *testing.T) {
	platform := &fakePlatform{}
	s := New(platform, nil, DefaultQuantization())

	s.Activate(ModeMouse)

	if !platform.capture {
		t.Fatalf("capture = false after Activate, want true")
	}
	if platform.recenters != 1 {
		t.Fatalf("recenters = %d, want 1", platform.recenters)
	}

	s.Deactivate(ModeMouse)
	if s.Active() {
		t.Fatalf("Active() = true after Deactivate")
	}
	if platform.capture {
		t.Fatalf("capture = true after Deactivate, want false")
	}
}

func TestKeyboardModeIgnoresActivation(t *testing.T) {
	platform := &fakePlatform{}
	s := New(platform, nil, DefaultQuantization())

	s.Activate(ModeKeyboardOrGamepad)
	if s.Active() {
		t.Fatalf("Activate(ModeKeyboardOrGamepad) activated the state")
	}
	if len(platform.captures) != 0 {
		t.Fatalf("capture toggled %d times under keyboard mode, want 0", len(platform.captures))
	}

	s.Activate(ModeMouse)
	s.Deactivate(ModeKeyboardOrGamepad)
	if !s.Active() {
		t.Fatalf("Deactivate(ModeKeyboardOrGamepad) deactivated the state")
	}
}

func TestActivateSurvivesCaptureFailure(t *testing.T) {
	platform := &fakePlatform{err: errors.New("grab refused")}
	s := New(platform, nil, DefaultQuantization())

	s.Activate(ModeMouse)
	if !s.Active() {
		t.Fatalf("capture failure should not block activation")
	}
}

func TestRecenterOnlyWhileActive(t *testing.T) {
	platform := &fakePlatform{}
	s := New(platform, nil, DefaultQuantization())

	s.Recenter()
	if platform.recenters != 0 {
		t.Fatalf("recenters = %d while inactive, want 0", platform.recenters)
	}
	s.Activate(ModeMouse)
	s.Recenter()
	if platform.recenters != 2 {
		t.Fatalf("recenters = %d, want 2", platform.recenters)
	}
}

func TestSnapshotScalesAndClearsPending(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())

	s.RecordMotion(6, -2)
	s.RecordMotion(4, -3)
	s.Snapshot()

	dx, dy, _ := s.Pending()
	if dx != 0 || dy != 0 {
		t.Fatalf("pending = (%d,%d) after Snapshot, want (0,0)", dx, dy)
	}

	yaw, pitch, velocity := s.DrainDeltas()
	if yaw != 9929 {
		t.Fatalf("yaw = %d, want 9929", yaw)
	}
	// Screen-down motion maps to positive pitch.
	if pitch != 4964 {
		t.Fatalf("pitch = %d, want 4964", pitch)
	}
	if velocity != 0 {
		t.Fatalf("velocity = %d, want 0", velocity)
	}
}

func TestSnapshotClampsLargeMotion(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())

	s.RecordMotion(100, -50)
	s.Snapshot()

	yaw, pitch, _ := s.DrainDeltas()
	if yaw != 32256 {
		t.Fatalf("yaw = %d, want 32256 (0.4921875 field)", yaw)
	}
	if pitch != 30720 {
		t.Fatalf("pitch = %d, want 30720 (0.46875 field)", pitch)
	}
}

func TestSnapshotNeverExceedsLimits(t *testing.T) {
	quant := DefaultQuantization()
	yawLimit := quant.YawLimitFixed()
	pitchLimit := quant.PitchLimitFixed()

	raws := []int{0, 1, -1, 65, -65, 1000, -1000, 1 << 20, -(1 << 20), 1 << 30, -(1 << 30)}
	for _, accel := range []bool{false, true} {
		for _, rx := range raws {
			for _, ry := range raws {
				s, _ := newActiveState(t, Sensitivity{Horizontal: 3.5, Vertical: 3.5, Acceleration: accel})
				s.RecordMotion(rx, ry)
				s.Snapshot()
				yaw, pitch, _ := s.DrainDeltas()
				if yaw > yawLimit || yaw < -yawLimit {
					t.Fatalf("raw=(%d,%d) accel=%t: yaw=%d outside ±%d", rx, ry, accel, yaw, yawLimit)
				}
				if pitch > pitchLimit || pitch < -pitchLimit {
					t.Fatalf("raw=(%d,%d) accel=%t: pitch=%d outside ±%d", rx, ry, accel, pitch, pitchLimit)
				}
			}
		}
	}
}

func TestSnapshotSaturatesNonFiniteSensitivity(t *testing.T) {
	quant := DefaultQuantization()
	yawLimit := quant.YawLimitFixed()
	pitchLimit := quant.PitchLimitFixed()
	nan, inf := math.NaN(), math.Inf(1)

	tests := []struct {
		name             string
		sens             Sensitivity
		dx, dy           int
		wantYaw, wantPit Fixed
	}{
		{"nan without motion", Sensitivity{Horizontal: nan, Vertical: nan}, 0, 0, 0, 0},
		{"nan with motion", Sensitivity{Horizontal: nan, Vertical: nan}, 10, -5, 0, 0},
		{"inf without motion", Sensitivity{Horizontal: inf, Vertical: inf}, 0, 0, 0, 0},
		{"inf with motion", Sensitivity{Horizontal: inf, Vertical: inf}, 10, -5, yawLimit, pitchLimit},
		{"negative inf with motion", Sensitivity{Horizontal: -inf, Vertical: -inf}, 10, -5, -yawLimit, -pitchLimit},
		{"inf accelerated", Sensitivity{Horizontal: inf, Vertical: inf, Acceleration: true}, -3, 3, -yawLimit, -pitchLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newActiveState(t, tt.sens)
			s.RecordMotion(tt.dx, tt.dy)
			s.Snapshot()
			yaw, pitch, _ := s.DrainDeltas()
			if yaw != tt.wantYaw || pitch != tt.wantPit {
				t.Fatalf("deltas = (%d,%d), want (%d,%d)", yaw, pitch, tt.wantYaw, tt.wantPit)
			}
		})
	}
}

func TestInvertVerticalFlipsPitch(t *testing.T) {
	normal, _ := newActiveState(t, DefaultSensitivity())
	inverted, _ := newActiveState(t, Sensitivity{Horizontal: 1, Vertical: 1, InvertVertical: true})

	for _, s := range []*State{normal, inverted} {
		s.RecordMotion(10, -5)
		s.Snapshot()
	}
	nYaw, nPitch, _ := normal.DrainDeltas()
	iYaw, iPitch, _ := inverted.DrainDeltas()

	if nPitch == 0 || iPitch != -nPitch {
		t.Fatalf("pitch normal=%d inverted=%d, want opposite signs", nPitch, iPitch)
	}
	if nYaw != iYaw {
		t.Fatalf("yaw changed by inversion: %d vs %d", nYaw, iYaw)
	}
}

func TestAccelerationCurve(t *testing.T) {
	s, _ := newActiveState(t, Sensitivity{Horizontal: 1, Vertical: 1, Acceleration: true})

	// 11 counts = 1/6 field; (1/6)^2 * 4 = 1/9 field.
	s.RecordMotion(-11, -11)
	s.Snapshot()
	yaw, pitch, _ := s.DrainDeltas()
	if yaw != -7281 {
		t.Fatalf("yaw = %d, want -7281", yaw)
	}
	if pitch != 7281 {
		t.Fatalf("pitch = %d, want 7281", pitch)
	}
}

func TestSensitivityScalesAxesIndependently(t *testing.T) {
	s, _ := newActiveState(t, Sensitivity{Horizontal: 2, Vertical: 0.5})

	s.RecordMotion(10, -10)
	s.Snapshot()
	yaw, pitch, _ := s.DrainDeltas()
	if yaw != 19859 {
		t.Fatalf("yaw = %d, want 19859", yaw)
	}
	if pitch != 4964 {
		t.Fatalf("pitch = %d, want 4964", pitch)
	}
}

func TestDrainIsAtMostOnce(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())
	s.SetVelocity(FixedOne / 2)
	s.RecordMotion(10, 10)
	s.Snapshot()

	yaw, pitch, velocity := s.DrainDeltas()
	if yaw == 0 || pitch == 0 || velocity != FixedOne/2 {
		t.Fatalf("first drain = (%d,%d,%d), want non-zero", yaw, pitch, velocity)
	}
	yaw, pitch, velocity = s.DrainDeltas()
	if yaw != 0 || pitch != 0 || velocity != 0 {
		t.Fatalf("second drain = (%d,%d,%d), want zeros", yaw, pitch, velocity)
	}
}

func TestDrainAfterDeactivateReturnsZero(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())
	s.RecordMotion(30, 30)
	s.Snapshot()
	s.SetVelocity(FixedOne)

	s.Deactivate(ModeMouse)
	yaw, pitch, velocity := s.DrainDeltas()
	if yaw != 0 || pitch != 0 || velocity != 0 {
		t.Fatalf("drain while inactive = (%d,%d,%d), want zeros", yaw, pitch, velocity)
	}
}

func TestSnapshotWhileInactiveKeepsPending(t *testing.T) {
	s := New(&fakePlatform{}, nil, DefaultQuantization())

	s.RecordMotion(7, 3)
	s.Snapshot()

	dx, dy, _ := s.Pending()
	if dx != 7 || dy != 3 {
		t.Fatalf("pending = (%d,%d), want (7,3)", dx, dy)
	}
}

func TestMotionBeforeActivationIsDiscarded(t *testing.T) {
	s := New(&fakePlatform{}, nil, DefaultQuantization())

	s.RecordMotion(40, -40)
	s.RecordScroll(true)
	s.Activate(ModeMouse)
	s.Snapshot()

	yaw, pitch, _ := s.DrainDeltas()
	if yaw != 0 || pitch != 0 {
		t.Fatalf("drain = (%d,%d), want zeros after activation reset", yaw, pitch)
	}
	var keys KeyState
	s.SampleButtons(&keys)
	if keys.ScrollUp() {
		t.Fatalf("scroll recorded before activation leaked through")
	}
}

func TestButtonHeldAtActivationIsMasked(t *testing.T) {
	platform := &fakePlatform{live: ButtonSet(0).With(ButtonPrimary)}
	s := New(platform, nil, DefaultQuantization())
	s.Activate(ModeMouse)

	var keys KeyState
	s.SampleButtons(&keys)
	if keys.Button(ButtonPrimary) {
		t.Fatalf("button held at activation reported pressed")
	}

	// Still held: stays masked.
	s.SampleButtons(&keys)
	if keys.Button(ButtonPrimary) {
		t.Fatalf("button still held reported pressed before release")
	}

	platform.live = 0
	s.SampleButtons(&keys)
	if keys.Button(ButtonPrimary) {
		t.Fatalf("released button reported pressed")
	}

	platform.live = ButtonSet(0).With(ButtonPrimary)
	s.SampleButtons(&keys)
	if !keys.Button(ButtonPrimary) {
		t.Fatalf("button pressed after release not reported")
	}
}

func TestUnheldButtonEnabledAfterFirstSample(t *testing.T) {
	platform := &fakePlatform{live: ButtonSet(0).With(ButtonPrimary)}
	s := New(platform, nil, DefaultQuantization())
	s.Activate(ModeMouse)

	var keys KeyState
	s.SampleButtons(&keys)

	platform.live = platform.live.With(ButtonSecondary)
	s.SampleButtons(&keys)
	if !keys.Button(ButtonSecondary) {
		t.Fatalf("secondary button was released at first sample and should be enabled")
	}
	if keys.Button(ButtonPrimary) {
		t.Fatalf("primary button never released and should stay masked")
	}
}

func TestReactivationMasksAgain(t *testing.T) {
	platform := &fakePlatform{}
	s := New(platform, nil, DefaultQuantization())
	s.Activate(ModeMouse)

	var keys KeyState
	s.SampleButtons(&keys)
	platform.live = ButtonSet(0).With(ButtonMiddle)
	s.SampleButtons(&keys)
	if !keys.Button(ButtonMiddle) {
		t.Fatalf("middle button should be enabled")
	}

	s.Deactivate(ModeMouse)
	s.Activate(ModeMouse)
	s.SampleButtons(&keys)
	if keys.Button(ButtonMiddle) {
		t.Fatalf("held button reported pressed right after reactivation")
	}
}

func TestScrollIsMomentary(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())

	s.RecordScroll(true)
	s.RecordScroll(true)

	var keys KeyState
	s.SampleButtons(&keys)
	if !keys.ScrollUp() || keys.ScrollDown() {
		t.Fatalf("first sample up=%t down=%t, want up only", keys.ScrollUp(), keys.ScrollDown())
	}
	s.SampleButtons(&keys)
	if keys.ScrollUp() || keys.ScrollDown() {
		t.Fatalf("second sample up=%t down=%t, want neither", keys.ScrollUp(), keys.ScrollDown())
	}
}

func TestScrollSumsToNet(t *testing.T) {
	s, _ := newActiveState(t, DefaultSensitivity())

	s.RecordScroll(true)
	s.RecordScroll(false)
	s.RecordScroll(false)

	var keys KeyState
	s.SampleButtons(&keys)
	if keys.ScrollUp() || !keys.ScrollDown() {
		t.Fatalf("net -1 scroll gave up=%t down=%t", keys.ScrollUp(), keys.ScrollDown())
	}
}

func TestSampleButtonsWhileInactive(t *testing.T) {
	platform := &fakePlatform{live: ButtonSet(0xff)}
	s := New(platform, nil, DefaultQuantization())
	s.RecordScroll(true)

	keys := KeyState{true, true, true}
	s.SampleButtons(&keys)
	if keys != (KeyState{}) {
		t.Fatalf("inactive sample = %v, want all released", keys)
	}
	_, _, scroll := s.Pending()
	if scroll != 1 {
		t.Fatalf("pending scroll = %d, inactive sample should not consume it", scroll)
	}
}

func TestPrimaryStillDownIgnoresMask(t *testing.T) {
	platform := &fakePlatform{live: ButtonSet(0).With(ButtonPrimary)}
	s := New(platform, nil, DefaultQuantization())
	s.Activate(ModeMouse)

	if !s.PrimaryStillDown() {
		t.Fatalf("PrimaryStillDown() = false, want true")
	}
}
