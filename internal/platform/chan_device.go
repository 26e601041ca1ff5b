package platform

import (
	"context"
	"sync"
)

// ChanDevice is a Device fed by Push. The debug console and tests use it.
type ChanDevice struct {
	events chan Event

	mu        sync.Mutex
	captured  bool
	recenters int
	closed    bool
}

func NewChanDevice(depth int) *ChanDevice {
	return &ChanDevice{events: make(chan Event, depth)}
}

func (d *ChanDevice) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (d *ChanDevice) Events() <-chan Event {
	return d.events
}

// Push queues ev, dropping it if the queue is full. It reports whether ev
// was queued.
func (d *ChanDevice) Push(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.events <- ev:
		return true
	default:
		return false
	}
}

func (d *ChanDevice) SetCapture(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.captured = enabled
	return nil
}

func (d *ChanDevice) Captured() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captured
}

func (d *ChanDevice) Recenter() {
	d.mu.Lock()
	d.recenters++
	d.mu.Unlock()
}

func (d *ChanDevice) Recenters() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recenters
}

func (d *ChanDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	return nil
}
