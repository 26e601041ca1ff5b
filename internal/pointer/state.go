package pointer

import (
	"log/slog"
	"math"
)

// Mode is the input mode the host is running under.
type Mode int

const (
	ModeKeyboardOrGamepad Mode = iota
	ModeMouse
	ModeMouseAndKeyboard
)

func (m Mode) String() string {
	switch m {
	case ModeKeyboardOrGamepad:
		return "keyboard_or_gamepad"
	case ModeMouse:
		return "mouse"
	case ModeMouseAndKeyboard:
		return "mouse_and_keyboard"
	default:
		return "unknown"
	}
}

func (m Mode) usesPointer() bool {
	return m != ModeKeyboardOrGamepad
}

// RawUnitsPerField maps raw device counts onto turn-field units: 66 counts at
// unit sensitivity make one full field.
const RawUnitsPerField = 66.0

// accelerationGain is the multiplier of the quadratic response curve.
const accelerationGain = 4.0

// Sensitivity is owned by the configuration layer; State only reads it.
type Sensitivity struct {
	Horizontal     float64
	Vertical       float64
	InvertVertical bool
	Acceleration   bool
}

func DefaultSensitivity() Sensitivity {
	return Sensitivity{Horizontal: 1, Vertical: 1}
}

type SensitivitySource interface {
	Sensitivity() Sensitivity
}

// Platform is the slice of the platform input layer State drives.
type Platform interface {
	SetCapture(enabled bool) error
	Recenter()
	LiveButtons() ButtonSet
}

// State accumulates pointer input between ticks. It is not safe for
// concurrent use; all calls must come from the goroutine running the tick.
type State struct {
	platform    Platform
	sensitivity SensitivitySource
	quant       Quantization

	active        bool
	pendingDX     int
	pendingDY     int
	pendingScroll int
	yawDelta      Fixed
	pitchDelta    Fixed
	velocityDelta Fixed
	buttonMask    ButtonMask
}

func New(platform Platform, sensitivity SensitivitySource, quant Quantization) *State {
	return &State{
		platform:    platform,
		sensitivity: sensitivity,
		quant:       quant,
	}
}

func (s *State) Active() bool {
	return s.active
}

func (s *State) Quantization() Quantization {
	return s.quant
}

// Activate enters in-game pointer handling. All buttons start disabled so a
// click still held from a menu does not fire in game.
func (s *State) Activate(mode Mode) {
	if !mode.usesPointer() {
		return
	}
	s.setCapture(true)
	s.active = true
	s.yawDelta, s.pitchDelta, s.velocityDelta = 0, 0, 0
	s.pendingScroll = 0
	s.pendingDX, s.pendingDY = 0, 0
	s.buttonMask.disableAll()
	s.Recenter()
}

func (s *State) Deactivate(mode Mode) {
	if !mode.usesPointer() {
		return
	}
	s.setCapture(false)
	s.active = false
}

// Recenter asks the platform to re-center the pointer, e.g. after the
// screen size changed. Ignored while inactive.
func (s *State) Recenter() {
	if s.active && s.platform != nil {
		s.platform.Recenter()
	}
}

func (s *State) setCapture(enabled bool) {
	if s.platform == nil {
		return
	}
	if err := s.platform.SetCapture(enabled); err != nil {
		slog.Warn("Pointer capture toggle failed", "enabled", enabled, "error", err)
	}
}

func (s *State) RecordMotion(dx, dy int) {
	s.pendingDX += dx
	s.pendingDY += dy
}

func (s *State) RecordScroll(up bool) {
	if up {
		s.pendingScroll++
	} else {
		s.pendingScroll--
	}
}

// SetVelocity stores the velocity delta produced outside this package. It is
// handed out and cleared by DrainDeltas.
func (s *State) SetVelocity(v Fixed) {
	s.velocityDelta = v
}

// Snapshot converts the motion accumulated since the last tick into yaw and
// pitch deltas. Must run once per tick; does nothing while inactive.
func (s *State) Snapshot() {
	if !s.active {
		return
	}

	dx := float64(s.pendingDX)
	dy := -float64(s.pendingDY)
	s.pendingDX, s.pendingDY = 0, 0

	sens := s.currentSensitivity()
	if sens.InvertVertical {
		dy = -dy
	}

	dx *= sens.Horizontal / RawUnitsPerField
	dy *= sens.Vertical / RawUnitsPerField

	if sens.Acceleration {
		dx = accelerate(dx)
		dy = accelerate(dy)
	}

	dx = clamp(dx, s.quant.YawLimit())
	dy = clamp(dy, s.quant.PitchLimit())

	s.yawDelta = FixedFromFloat(dx)
	s.pitchDelta = FixedFromFloat(dy)
}

func accelerate(v float64) float64 {
	return v * math.Abs(v) * accelerationGain
}

func (s *State) currentSensitivity() Sensitivity {
	if s.sensitivity == nil {
		return DefaultSensitivity()
	}
	return s.sensitivity.Sensitivity()
}

// DrainDeltas hands out the last snapshot at most once.
func (s *State) DrainDeltas() (yaw, pitch, velocity Fixed) {
	if !s.active {
		return 0, 0, 0
	}
	yaw, pitch, velocity = s.yawDelta, s.pitchDelta, s.velocityDelta
	s.yawDelta, s.pitchDelta, s.velocityDelta = 0, 0, 0
	return yaw, pitch, velocity
}

// SampleButtons writes the debounced button state and the pending scroll
// direction into out. Scroll is momentary: it is consumed by the call.
func (s *State) SampleButtons(out *KeyState) {
	if out == nil {
		return
	}
	if !s.active || s.platform == nil {
		*out = KeyState{}
		return
	}

	live := s.platform.LiveButtons()
	enabled := s.buttonMask.Apply(live)
	for i := 0; i < NumButtons; i++ {
		out[SlotButtonBase+i] = enabled.Has(i)
	}
	out[SlotScrollUp] = s.pendingScroll > 0
	out[SlotScrollDown] = s.pendingScroll < 0
	s.pendingScroll = 0

	s.buttonMask.enableReleased(live)
}

// PrimaryStillDown reports the raw primary button, ignoring the mask.
func (s *State) PrimaryStillDown() bool {
	if s.platform == nil {
		return false
	}
	return s.platform.LiveButtons().Has(ButtonPrimary)
}

// Pending returns the raw accumulators, for diagnostics.
func (s *State) Pending() (dx, dy, scroll int) {
	return s.pendingDX, s.pendingDY, s.pendingScroll
}
