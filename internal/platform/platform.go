// Package platform adapts OS pointer sources to the pointer core. Backends
// read on their own goroutine and queue events; the tick loop drains the
// queue on the goroutine that owns the pointer state.
package platform

import (
	"context"

	"github.com/Versifine/mouselook/internal/pointer"
)

type EventKind int

const (
	KindMotion EventKind = iota
	KindScroll
	KindButton
)

type Event struct {
	Kind   EventKind
	DX, DY int
	Up     bool // scroll direction
	Button int
	Down   bool
}

func Motion(dx, dy int) Event {
	return Event{Kind: KindMotion, DX: dx, DY: dy}
}

func Scroll(up bool) Event {
	return Event{Kind: KindScroll, Up: up}
}

func Button(button int, down bool) Event {
	return Event{Kind: KindButton, Button: button, Down: down}
}

// Device is a pointer source.
type Device interface {
	// Run reads the device until ctx is done or the device fails.
	Run(ctx context.Context) error
	Events() <-chan Event
	SetCapture(enabled bool) error
	Recenter()
	Close() error
}

// Sink receives accumulated input; *pointer.State implements it.
type Sink interface {
	RecordMotion(dx, dy int)
	RecordScroll(up bool)
}

// liveButtonReporter is implemented by devices that can query the button
// state directly instead of tracking it from events.
type liveButtonReporter interface {
	LiveButtons() pointer.ButtonSet
}

// Input joins a Device with the button state tracked from its events and
// implements pointer.Platform.
type Input struct {
	dev     Device
	buttons pointer.ButtonSet
}

func NewInput(dev Device) *Input {
	return &Input{dev: dev}
}

func (in *Input) SetCapture(enabled bool) error {
	return in.dev.SetCapture(enabled)
}

func (in *Input) Recenter() {
	in.dev.Recenter()
}

func (in *Input) LiveButtons() pointer.ButtonSet {
	if r, ok := in.dev.(liveButtonReporter); ok {
		return r.LiveButtons()
	}
	return in.buttons
}

// Pump drains every queued event into sink without blocking and returns the
// number of events applied.
func (in *Input) Pump(sink Sink) int {
	n := 0
	events := in.dev.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return n
			}
			in.apply(ev, sink)
			n++
		default:
			return n
		}
	}
}

func (in *Input) apply(ev Event, sink Sink) {
	switch ev.Kind {
	case KindMotion:
		sink.RecordMotion(ev.DX, ev.DY)
	case KindScroll:
		sink.RecordScroll(ev.Up)
	case KindButton:
		if ev.Down {
			in.buttons = in.buttons.With(ev.Button)
		} else {
			in.buttons = in.buttons.Without(ev.Button)
		}
	}
}
