package event

import "time"

const (
	EventActivation  = "pointer.activation"
	EventActionFrame = "action.frame"
)

type ActivationEvent struct {
	Active bool
	Mode   string
}

// ActionFrame is what one tick produced for the simulation.
type ActionFrame struct {
	Tick       uint64
	At         time.Time
	Yaw        int32
	Pitch      int32
	Velocity   int32
	Flags      uint32
	Buttons    uint8
	ScrollUp   bool
	ScrollDown bool
}
