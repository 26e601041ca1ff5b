//go:build !linux

package evdev

import (
	"context"
	"errors"

	"github.com/Versifine/mouselook/internal/platform"
)

var ErrUnsupported = errors.New("evdev is only available on linux")

type Device struct{}

func Open(path string, grab bool, depth int) (*Device, error) {
	return nil, ErrUnsupported
}

func (d *Device) Run(ctx context.Context) error { return ErrUnsupported }
func (d *Device) Events() <-chan platform.Event { return nil }
func (d *Device) SetCapture(enabled bool) error { return ErrUnsupported }
func (d *Device) Recenter()                     {}
func (d *Device) Close() error                  { return nil }
