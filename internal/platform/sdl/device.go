//go:build sdl

// Package sdl drives the pointer from an SDL2 window. SDL calls are funneled
// through sdl.Do, so the program must run inside sdl.Main.
package sdl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/pointer"
)

const pollInterval = 2 * time.Millisecond

var ErrQuit = errors.New("sdl window closed")

type Device struct {
	window *sdl.Window
	events chan platform.Event
}

// OpenWindow initializes SDL video and opens a window for the device.
func OpenWindow(title string, width, height int32) (*Device, error) {
	var dev *Device
	var err error
	sdl.Do(func() {
		if err = sdl.Init(sdl.INIT_VIDEO); err != nil {
			err = fmt.Errorf("sdl init: %w", err)
			return
		}
		var w *sdl.Window
		w, err = sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, width, height, sdl.WINDOW_SHOWN)
		if err != nil {
			sdl.Quit()
			err = fmt.Errorf("sdl create window: %w", err)
			return
		}
		dev = New(w, 256)
	})
	return dev, err
}

func New(window *sdl.Window, depth int) *Device {
	return &Device{window: window, events: make(chan platform.Event, depth)}
}

func (d *Device) Events() <-chan platform.Event {
	return d.events
}

func (d *Device) SetCapture(enabled bool) error {
	sdl.Do(func() {
		sdl.SetRelativeMouseMode(enabled)
	})
	return nil
}

func (d *Device) Recenter() {
	sdl.Do(func() {
		w, h := d.window.GetSize()
		d.window.WarpMouseInWindow(w/2, h/2)
	})
}

// LiveButtons queries SDL directly. SDL's button masks are ordered left,
// middle, right, x1, x2, which matches the pointer button indices.
func (d *Device) LiveButtons() pointer.ButtonSet {
	var state uint32
	sdl.Do(func() {
		_, _, st := sdl.GetMouseState()
		state = uint32(st)
	})
	return pointer.ButtonSet(state)
}

// Run polls the SDL queue and forwards pointer events until ctx is done or
// the window is closed.
func (d *Device) Run(ctx context.Context) error {
	defer close(d.events)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		var batch []platform.Event
		quit := false
		sdl.Do(func() {
			for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
				switch e := ev.(type) {
				case *sdl.QuitEvent:
					quit = true
				case *sdl.MouseMotionEvent:
					batch = append(batch, platform.Motion(int(e.XRel), int(e.YRel)))
				case *sdl.MouseWheelEvent:
					if e.Y != 0 {
						batch = append(batch, platform.Scroll(e.Y > 0))
					}
				case *sdl.MouseButtonEvent:
					batch = append(batch, platform.Button(int(e.Button)-1, e.State == sdl.PRESSED))
				}
			}
		})
		for _, ev := range batch {
			select {
			case d.events <- ev:
			case <-ctx.Done():
				return nil
			}
		}
		if quit {
			return ErrQuit
		}
	}
}

func (d *Device) Close() error {
	var err error
	sdl.Do(func() {
		err = d.window.Destroy()
		sdl.Quit()
	})
	return err
}
