// Package evdev reads a relative pointer from a Linux /dev/input/event* node.
package evdev

import (
	"encoding/binary"

	"github.com/Versifine/mouselook/internal/pointer"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	synReport  = 0x00
	synDropped = 0x03

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	btnLeft    = 0x110
	btnRight   = 0x111
	btnMiddle  = 0x112
	btnSide    = 0x113
	btnExtra   = 0x114
	btnForward = 0x115
	btnBack    = 0x116
	btnTask    = 0x117
)

// EVIOCGRAB = _IOW('E', 0x90, int)
const evIOCGrab = 0x40044590

// keyBitsLen covers KEY_MAX (0x2ff) one bit per code.
const keyBitsLen = 0x2ff/8 + 1

// EVIOCGKEY(keyBitsLen) = _IOC(_IOC_READ, 'E', 0x18, keyBitsLen)
const evIOCGKey = 2<<30 | keyBitsLen<<16 | 'E'<<8 | 0x18

var buttonIndex = map[uint16]int{
	btnLeft:    pointer.ButtonPrimary,
	btnMiddle:  pointer.ButtonMiddle,
	btnRight:   pointer.ButtonSecondary,
	btnSide:    pointer.ButtonBack,
	btnExtra:   pointer.ButtonForward,
	btnForward: 5,
	btnBack:    6,
	btnTask:    7,
}

// rawEvent is struct input_event minus the timestamp.
type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

// timevalSize is 16 on 64-bit kernels and 8 on 32-bit ones.
func decodeRaw(buf []byte, timevalSize int) rawEvent {
	b := buf[timevalSize:]
	return rawEvent{
		Type:  binary.NativeEndian.Uint16(b[0:2]),
		Code:  binary.NativeEndian.Uint16(b[2:4]),
		Value: int32(binary.NativeEndian.Uint32(b[4:8])),
	}
}

// buttonsFromKeyBits picks the pointer buttons out of an EVIOCGKEY bitmap.
func buttonsFromKeyBits(bits []byte) pointer.ButtonSet {
	var s pointer.ButtonSet
	for code, button := range buttonIndex {
		i := int(code / 8)
		if i < len(bits) && bits[i]&(1<<(code%8)) != 0 {
			s = s.With(button)
		}
	}
	return s
}
