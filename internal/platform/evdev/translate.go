package evdev

import (
	"log/slog"

	"github.com/Versifine/mouselook/internal/platform"
	"github.com/Versifine/mouselook/internal/pointer"
)

// translator folds raw events into platform events. Relative motion inside
// one SYN_REPORT frame is merged into a single motion event.
//
// Events between SYN_DROPPED and the next SYN_REPORT are discarded, so a
// button change inside that window is lost. At the report the translator
// asks queryButtons for the device's current key state and emits whatever
// differs from what it has reported so far. Without a query, or if it fails,
// every button it believes down is released.
type translator struct {
	dx, dy       int
	dropping     bool
	down         pointer.ButtonSet
	queryButtons func() (pointer.ButtonSet, error)
}

func (t *translator) feed(ev rawEvent, emit func(platform.Event)) {
	if t.dropping {
		if ev.Type == evSyn && ev.Code == synReport {
			t.dropping = false
			t.resync(emit)
		}
		return
	}

	switch ev.Type {
	case evSyn:
		switch ev.Code {
		case synReport:
			t.flush(emit)
		case synDropped:
			t.dx, t.dy = 0, 0
			t.dropping = true
		}
	case evRel:
		switch ev.Code {
		case relX:
			t.dx += int(ev.Value)
		case relY:
			t.dy += int(ev.Value)
		case relWheel:
			t.flush(emit)
			up := ev.Value > 0
			n := int(ev.Value)
			if n < 0 {
				n = -n
			}
			for i := 0; i < n; i++ {
				emit(platform.Scroll(up))
			}
		}
	case evKey:
		button, ok := buttonIndex[ev.Code]
		if !ok {
			return
		}
		// value 2 is autorepeat
		switch ev.Value {
		case 0:
			t.flush(emit)
			t.setButton(button, false, emit)
		case 1:
			t.flush(emit)
			t.setButton(button, true, emit)
		}
	}
}

func (t *translator) setButton(button int, down bool, emit func(platform.Event)) {
	if down {
		t.down = t.down.With(button)
	} else {
		t.down = t.down.Without(button)
	}
	emit(platform.Button(button, down))
}

func (t *translator) resync(emit func(platform.Event)) {
	var live pointer.ButtonSet
	if t.queryButtons != nil {
		var err error
		live, err = t.queryButtons()
		if err != nil {
			slog.Warn("evdev key state query failed, releasing buttons", "error", err)
			live = 0
		}
	}
	for i := 0; i < pointer.NumButtons; i++ {
		if was, is := t.down.Has(i), live.Has(i); was != is {
			t.setButton(i, is, emit)
		}
	}
}

func (t *translator) flush(emit func(platform.Event)) {
	if t.dx == 0 && t.dy == 0 {
		return
	}
	emit(platform.Motion(t.dx, t.dy))
	t.dx, t.dy = 0, 0
}
