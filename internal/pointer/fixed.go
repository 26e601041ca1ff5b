package pointer

import "math"

// Fixed is a signed 16.16 fixed-point value.
type Fixed int32

const (
	FixedFractionalBits = 16
	FixedOne            = Fixed(1 << FixedFractionalBits)
)

// FixedFromFloat truncates toward zero.
func FixedFromFloat(v float64) Fixed {
	return Fixed(v * float64(FixedOne))
}

func (f Fixed) Float() float64 {
	return float64(f) / float64(FixedOne)
}

// Quantization holds the bit widths the downstream action encoding reserves
// for each angular axis.
type Quantization struct {
	YawBits   uint
	PitchBits uint
}

const (
	DefaultYawBits   = 7
	DefaultPitchBits = 5
)

func DefaultQuantization() Quantization {
	return Quantization{YawBits: DefaultYawBits, PitchBits: DefaultPitchBits}
}

// YawLimit is the largest yaw magnitude, in turn-field units, for which both
// +v and -v fit the yaw field.
func (q Quantization) YawLimit() float64 {
	return axisLimit(q.YawBits)
}

func (q Quantization) PitchLimit() float64 {
	return axisLimit(q.PitchBits)
}

func (q Quantization) YawLimitFixed() Fixed {
	return FixedFromFloat(q.YawLimit())
}

func (q Quantization) PitchLimitFixed() Fixed {
	return FixedFromFloat(q.PitchLimit())
}

func axisLimit(bits uint) float64 {
	if bits == 0 {
		return 0
	}
	return 0.5 - 1.0/math.Ldexp(1, int(bits))
}

// clamp maps NaN to 0; infinities saturate like any other value.
func clamp(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
