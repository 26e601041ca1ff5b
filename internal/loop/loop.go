// Package loop runs the fixed-rate tick that turns queued pointer input into
// action frames.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Versifine/mouselook/internal/action"
	"github.com/Versifine/mouselook/internal/event"
	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/pointer"
)

type controlOp int

const (
	opActivate controlOp = iota
	opDeactivate
	opRecenter
)

const controlQueueDepth = 8

// Loop owns the pointer state. Only the goroutine calling Run (or Step)
// touches it; other goroutines talk to it through Activate, Deactivate and
// Recenter.
type Loop struct {
	state    *pointer.State
	input    *platform.Input
	encoder  *action.Encoder
	bus      *event.Bus
	mode     pointer.Mode
	interval time.Duration
	control  chan controlOp

	tick uint64
	keys pointer.KeyState
}

type Config struct {
	Mode         pointer.Mode
	TickRate     int
	Quantization pointer.Quantization
}

func New(cfg Config, dev platform.Device, sensitivity pointer.SensitivitySource, bus *event.Bus) (*Loop, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRate)
	}
	encoder, err := action.NewEncoder(cfg.Quantization)
	if err != nil {
		return nil, err
	}
	input := platform.NewInput(dev)
	return &Loop{
		state:    pointer.New(input, sensitivity, cfg.Quantization),
		input:    input,
		encoder:  encoder,
		bus:      bus,
		mode:     cfg.Mode,
		interval: time.Second / time.Duration(cfg.TickRate),
		control:  make(chan controlOp, controlQueueDepth),
	}, nil
}

func (l *Loop) Activate()   { l.request(opActivate) }
func (l *Loop) Deactivate() { l.request(opDeactivate) }
func (l *Loop) Recenter()   { l.request(opRecenter) }

func (l *Loop) request(op controlOp) {
	select {
	case l.control <- op:
	default:
		slog.Warn("Pointer control queue full, request dropped", "op", op)
	}
}

// Run ticks until ctx is done, then releases the pointer.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	slog.Info("Tick loop started", "interval", l.interval, "mode", l.mode.String())

	for {
		select {
		case <-ctx.Done():
			l.setActive(false)
			return nil
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one tick: apply control requests, drain queued input, snapshot,
// consume and publish.
func (l *Loop) Step() event.ActionFrame {
	l.applyControl()
	l.input.Pump(l.state)

	l.state.Snapshot()
	yaw, pitch, velocity := l.state.DrainDeltas()
	l.state.SampleButtons(&l.keys)
	flags := l.encoder.Encode(yaw, pitch, l.keys)

	l.tick++
	frame := event.ActionFrame{
		Tick:       l.tick,
		At:         time.Now(),
		Yaw:        int32(yaw),
		Pitch:      int32(pitch),
		Velocity:   int32(velocity),
		Flags:      uint32(flags),
		Buttons:    uint8(buttonsOf(l.keys)),
		ScrollUp:   l.keys.ScrollUp(),
		ScrollDown: l.keys.ScrollDown(),
	}
	if yaw != 0 || pitch != 0 || frame.Buttons != 0 {
		slog.Debug("Action frame", "tick", frame.Tick, "yaw", yaw, "pitch", pitch, "flags", flags.String())
	}
	if l.bus != nil {
		l.bus.Publish(event.EventActionFrame, frame)
	}
	return frame
}

// State exposes the pointer state to code running on the loop goroutine.
func (l *Loop) State() *pointer.State {
	return l.state
}

func (l *Loop) applyControl() {
	for {
		select {
		case op := <-l.control:
			switch op {
			case opActivate:
				l.setActive(true)
			case opDeactivate:
				l.setActive(false)
			case opRecenter:
				l.state.Recenter()
			}
		default:
			return
		}
	}
}

func (l *Loop) setActive(active bool) {
	// Re-activating is a no-op here: it must not reset pending input or re-mask buttons.
	if l.state.Active() == active {
		return
	}
	if active {
		l.state.Activate(l.mode)
	} else {
		l.state.Deactivate(l.mode)
	}
	if l.state.Active() != active {
		slog.Debug("Pointer activation ignored for mode", "mode", l.mode.String())
		return
	}
	slog.Info("Pointer activation changed", "active", active, "mode", l.mode.String())
	if l.bus != nil {
		l.bus.Publish(event.EventActivation, event.ActivationEvent{Active: active, Mode: l.mode.String()})
	}
}

func buttonsOf(keys pointer.KeyState) pointer.ButtonSet {
	var s pointer.ButtonSet
	for i := 0; i < pointer.NumButtons; i++ {
		if keys.Button(i) {
			s = s.With(i)
		}
	}
	return s
}
