// Package action packs a tick's pointer snapshot into the action-flags word
// sent to the simulation.
package action

import (
	"errors"
	"fmt"

	"github.com/Versifine/mouselook/internal/pointer"
)

var ErrFieldOverflow = errors.New("action flag fields exceed 32 bits")

// Flags is one tick's worth of player intent.
type Flags uint32

// Key bits, in order, after the yaw and pitch fields.
const (
	KeyTrigger = iota
	KeySecondaryTrigger
	KeyAction
	KeyCycleForward
	KeyCycleBackward
	numKeyBits
)

// keySources maps each key bit to the virtual key slot that drives it.
var keySources = [numKeyBits]int{
	KeyTrigger:          pointer.SlotButtonBase + pointer.ButtonPrimary,
	KeySecondaryTrigger: pointer.SlotButtonBase + pointer.ButtonSecondary,
	KeyAction:           pointer.SlotButtonBase + pointer.ButtonMiddle,
	KeyCycleForward:     pointer.SlotScrollUp,
	KeyCycleBackward:    pointer.SlotScrollDown,
}

type Encoder struct {
	quant    pointer.Quantization
	keyShift uint
}

func NewEncoder(quant pointer.Quantization) (*Encoder, error) {
	if quant.YawBits < 2 || quant.PitchBits < 2 {
		return nil, fmt.Errorf("%w: yaw=%d pitch=%d bits, need at least 2 each", ErrFieldOverflow, quant.YawBits, quant.PitchBits)
	}
	if quant.YawBits > pointer.FixedFractionalBits || quant.PitchBits > pointer.FixedFractionalBits {
		return nil, fmt.Errorf("%w: yaw=%d pitch=%d bits, at most %d each", ErrFieldOverflow, quant.YawBits, quant.PitchBits, pointer.FixedFractionalBits)
	}
	total := quant.YawBits + quant.PitchBits + numKeyBits
	if total > 32 {
		return nil, fmt.Errorf("%w: need %d bits", ErrFieldOverflow, total)
	}
	return &Encoder{
		quant:    quant,
		keyShift: quant.YawBits + quant.PitchBits,
	}, nil
}

func (e *Encoder) Encode(yaw, pitch pointer.Fixed, keys pointer.KeyState) Flags {
	var f Flags
	f |= Flags(packField(yaw, e.quant.YawBits))
	f |= Flags(packField(pitch, e.quant.PitchBits)) << e.quant.YawBits
	for bit, slot := range keySources {
		if keys[slot] {
			f |= 1 << (e.keyShift + uint(bit))
		}
	}
	return f
}

// Decoded is the inverse of Encode, at field precision.
type Decoded struct {
	Yaw   pointer.Fixed
	Pitch pointer.Fixed
	Keys  [numKeyBits]bool
}

func (e *Encoder) Decode(f Flags) Decoded {
	var d Decoded
	d.Yaw = unpackField(uint32(f), e.quant.YawBits)
	d.Pitch = unpackField(uint32(f)>>e.quant.YawBits, e.quant.PitchBits)
	for bit := range d.Keys {
		d.Keys[bit] = f&(1<<(e.keyShift+uint(bit))) != 0
	}
	return d
}

// packField stores v (a fraction of the field) as a bits-wide two's
// complement count of 1/2^bits steps, saturating at the field range.
func packField(v pointer.Fixed, bits uint) uint32 {
	steps := int64(v) >> (pointer.FixedFractionalBits - bits)
	if v < 0 && int64(v)&(1<<(pointer.FixedFractionalBits-bits)-1) != 0 {
		// arithmetic shift floors; truncate toward zero instead
		steps++
	}
	maxSteps := int64(1)<<(bits-1) - 1
	minSteps := -(int64(1) << (bits - 1))
	if steps > maxSteps {
		steps = maxSteps
	} else if steps < minSteps {
		steps = minSteps
	}
	return uint32(steps) & (1<<bits - 1)
}

func unpackField(raw uint32, bits uint) pointer.Fixed {
	raw &= 1<<bits - 1
	steps := int32(raw)
	if raw&(1<<(bits-1)) != 0 {
		steps -= 1 << bits
	}
	return pointer.Fixed(steps) << (pointer.FixedFractionalBits - bits)
}

func (f Flags) String() string {
	return fmt.Sprintf("0x%08x", uint32(f))
}
