package pointer

// NumButtons is the number of physical buttons tracked.
const NumButtons = 8

const (
	ButtonPrimary   = 0
	ButtonMiddle    = 1
	ButtonSecondary = 2
	ButtonBack      = 3
	ButtonForward   = 4
)

// ButtonSet is a bitset keyed by button index.
type ButtonSet uint8

func (s ButtonSet) Has(button int) bool {
	if button < 0 || button >= NumButtons {
		return false
	}
	return s&(1<<uint(button)) != 0
}

func (s ButtonSet) With(button int) ButtonSet {
	if button < 0 || button >= NumButtons {
		return s
	}
	return s | 1<<uint(button)
}

func (s ButtonSet) Without(button int) ButtonSet {
	if button < 0 || button >= NumButtons {
		return s
	}
	return s &^ (1 << uint(button))
}

// ButtonMask marks which buttons may register as pressed.
type ButtonMask struct {
	enabled ButtonSet
}

func (m *ButtonMask) disableAll() {
	m.enabled = 0
}

// Apply filters live down buttons through the mask.
func (m ButtonMask) Apply(live ButtonSet) ButtonSet {
	return live & m.enabled
}

func (m ButtonMask) Enabled(button int) bool {
	return m.enabled.Has(button)
}

// enableReleased re-enables every button that live reports as up. Buttons
// currently down keep their previous state.
func (m *ButtonMask) enableReleased(live ButtonSet) {
	m.enabled |= ^live
}

// Key slots written by SampleButtons.
const (
	SlotButtonBase = 0
	SlotScrollUp   = SlotButtonBase + NumButtons
	SlotScrollDown = SlotScrollUp + 1
	NumKeySlots    = SlotScrollDown + 1
)

// KeyState is the virtual key array, true meaning pressed.
type KeyState [NumKeySlots]bool

func (k KeyState) Button(button int) bool {
	if button < 0 || button >= NumButtons {
		return false
	}
	return k[SlotButtonBase+button]
}

func (k KeyState) ScrollUp() bool {
	return k[SlotScrollUp]
}

func (k KeyState) ScrollDown() bool {
	return k[SlotScrollDown]
}
