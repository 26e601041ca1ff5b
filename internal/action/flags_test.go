package action

import (
	"errors"
	"testing"

	"github.com/Versifine/mouselook/internal/pointer"
)

func mustEncoder(t *testing.T, q pointer.Quantization) *Encoder {
	t.Helper()
	e, err := NewEncoder(q)
	if err != nil {
		t.Fatalf("NewEncoder(%+v): %v", q, err)
	}
	return e
}

func TestNewEncoderRejectsBadWidths(t *testing.T) {
	tests := []pointer.Quantization{
		{YawBits: 1, PitchBits: 5},
		{YawBits: 7, PitchBits: 0},
		{YawBits: 17, PitchBits: 5},
		{YawBits: 16, PitchBits: 16},
	}
	for _, q := range tests {
		if _, err := NewEncoder(q); !errors.Is(err, ErrFieldOverflow) {
			t.Fatalf("NewEncoder(%+v) err = %v, want ErrFieldOverflow", q, err)
		}
	}
}

func TestEncodeExtremesDoNotWrap(t *testing.T) {
	q := pointer.DefaultQuantization()
	e := mustEncoder(t, q)

	tests := []struct {
		name      string
		yaw       pointer.Fixed
		pitch     pointer.Fixed
		wantYaw   pointer.Fixed
		wantPitch pointer.Fixed
	}{
		{"max", q.YawLimitFixed(), q.PitchLimitFixed(), 32256, 30720},
		{"min", -q.YawLimitFixed(), -q.PitchLimitFixed(), -32256, -30720},
		{"zero", 0, 0, 0, 0},
		{"sub-step", 100, -100, 0, 0},
		{"one step", 512, -2048, 512, -2048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decode(e.Encode(tt.yaw, tt.pitch, pointer.KeyState{}))
			if d.Yaw != tt.wantYaw || d.Pitch != tt.wantPitch {
				t.Fatalf("decoded (%d,%d), want (%d,%d)", d.Yaw, d.Pitch, tt.wantYaw, tt.wantPitch)
			}
		})
	}
}

func TestEncodeSaturatesOutOfRange(t *testing.T) {
	e := mustEncoder(t, pointer.DefaultQuantization())

	d := e.Decode(e.Encode(pointer.FixedOne, -pointer.FixedOne, pointer.KeyState{}))
	if d.Yaw != 32256 {
		t.Fatalf("yaw = %d, want saturated 32256", d.Yaw)
	}
	if d.Pitch != -32768 {
		t.Fatalf("pitch = %d, want saturated -32768", d.Pitch)
	}
}

func TestEncodeKeys(t *testing.T) {
	e := mustEncoder(t, pointer.DefaultQuantization())

	var keys pointer.KeyState
	keys[pointer.SlotButtonBase+pointer.ButtonPrimary] = true
	keys[pointer.SlotScrollDown] = true

	f := e.Encode(0, 0, keys)
	// yaw(7) + pitch(5) = 12; trigger at bit 12, cycle backward at bit 16.
	if f != 1<<12|1<<16 {
		t.Fatalf("flags = %s, want 0x00011000", f)
	}

	d := e.Decode(f)
	want := [numKeyBits]bool{KeyTrigger: true, KeyCycleBackward: true}
	if d.Keys != want {
		t.Fatalf("decoded keys = %v, want %v", d.Keys, want)
	}
}

func TestSnapshotRoundTripKeepsSign(t *testing.T) {
	q := pointer.DefaultQuantization()
	e := mustEncoder(t, q)
	s := pointer.New(nil, nil, q)
	s.Activate(pointer.ModeMouse)

	for _, raw := range []int{-5000, -33, -1, 1, 33, 5000} {
		s.RecordMotion(raw, raw)
		s.Snapshot()
		yaw, pitch, _ := s.DrainDeltas()
		d := e.Decode(e.Encode(yaw, pitch, pointer.KeyState{}))
		if (yaw > 0) != (d.Yaw > 0) && d.Yaw != 0 {
			t.Fatalf("raw=%d: yaw %d decoded as %d", raw, yaw, d.Yaw)
		}
		if (pitch > 0) != (d.Pitch > 0) && d.Pitch != 0 {
			t.Fatalf("raw=%d: pitch %d decoded as %d", raw, pitch, d.Pitch)
		}
	}
}
