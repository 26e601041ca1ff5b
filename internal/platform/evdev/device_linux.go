//go:build linux

package evdev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/pointer"
)

const (
	pollTimeoutMS = 100
	readBatch     = 64
)

var ErrClosed = errors.New("evdev device closed")

// Device reads one evdev node. Capture maps to EVIOCGRAB when grab is set,
// so the desktop stops seeing the pointer while the game owns it.
type Device struct {
	path   string
	fd     int
	grab   bool
	events chan platform.Event

	mu      sync.Mutex
	grabbed bool
	closed  bool
}

func Open(path string, grab bool, depth int) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{
		path:   path,
		fd:     fd,
		grab:   grab,
		events: make(chan platform.Event, depth),
	}, nil
}

func (d *Device) Events() <-chan platform.Event {
	return d.events
}

func (d *Device) SetCapture(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if !d.grab || d.grabbed == enabled {
		return nil
	}
	v := 0
	if enabled {
		v = 1
	}
	if err := unix.IoctlSetInt(d.fd, evIOCGrab, v); err != nil {
		return fmt.Errorf("EVIOCGRAB %s: %w", d.path, err)
	}
	d.grabbed = enabled
	return nil
}

// Recenter is a no-op: an evdev mouse has no absolute position to reset.
func (d *Device) Recenter() {}

// Run polls the node with epoll and queues translated events. The events
// channel is closed when Run returns.
func (d *Device) Run(ctx context.Context) error {
	defer close(d.events)

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	reg := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(d.fd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, d.fd, &reg); err != nil {
		return fmt.Errorf("epoll_ctl_add %s: %w", d.path, err)
	}

	timevalSize := int(unsafe.Sizeof(unix.Timeval{}))
	eventSize := timevalSize + 8
	buf := make([]byte, eventSize*readBatch)
	ready := make([]unix.EpollEvent, 1)
	tr := translator{queryButtons: d.keyState}
	emit := func(ev platform.Event) {
		select {
		case d.events <- ev:
		case <-ctx.Done():
		}
	}

	slog.Debug("evdev reader started", "device", d.path)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := unix.EpollWait(epfd, ready, pollTimeoutMS)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}
		if n == 0 {
			continue
		}
		if ready[0].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			return fmt.Errorf("device error/hangup: %s", d.path)
		}

		nr, err := unix.Read(d.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, syscall.EINTR) {
				continue
			}
			return fmt.Errorf("read %s: %w", d.path, err)
		}
		for off := 0; off+eventSize <= nr; off += eventSize {
			tr.feed(decodeRaw(buf[off:off+eventSize], timevalSize), emit)
		}
	}
}

// keyState reads the current key bitmap, used to resync after SYN_DROPPED.
func (d *Device) keyState() (pointer.ButtonSet, error) {
	bits := make([]byte, keyBitsLen)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(evIOCGKey), uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return 0, fmt.Errorf("EVIOCGKEY %s: %w", d.path, errno)
	}
	return buttonsFromKeyBits(bits), nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.grabbed {
		_ = unix.IoctlSetInt(d.fd, evIOCGrab, 0)
		d.grabbed = false
	}
	return unix.Close(d.fd)
}
