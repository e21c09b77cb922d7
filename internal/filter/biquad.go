// Package filter implements the fixed second-order biquad and first-order
// PT1 filters used by the ATR current filter and the PID derivative term
// (spec.md C1).
package filter

import "math"

// BiquadType selects the biquad's response shape.
type BiquadType int

const (
	Lowpass BiquadType = iota
	Highpass
)

// Biquad is a transposed-direct-form-II second-order IIR section, configured by cutoff
// expressed as a fraction of the sample rate (Fc = cutoffHz / sampleHz), the
// same convention as original_source/applications/app_balance.c's
// biquad_config(&accel_biquad, BQ_LOWPASS, cutoff_freq/hertz).
type Biquad struct {
	a0, a1, a2 float64
	b1, b2     float64
	z1, z2     float64
}

// NewBiquad builds a fixed-Q biquad of the given type at the given
// normalized cutoff Fc (0, 0.5).
func NewBiquad(kind BiquadType, fc float64) *Biquad {
	b := &Biquad{}
	b.Configure(kind, fc)
	return b
}

// biquadQ is the fixed pole quality factor app_balance.c's
// biquad_config hard-codes (Q = 0.5), not a true Butterworth Q.
const biquadQ = 0.5

// Configure (re)computes the filter coefficients without touching the
// internal state, mirroring biquad_config's ability to retune a live filter.
func (b *Biquad) Configure(kind BiquadType, fc float64) {
	k := math.Tan(math.Pi * fc)
	norm := 1 / (1 + k/biquadQ + k*k)
	switch kind {
	case Highpass:
		b.a0 = 1 * norm
		b.a1 = -2 * b.a0
		b.a2 = b.a0
	default: // Lowpass
		b.a0 = k * k * norm
		b.a1 = 2 * b.a0
		b.a2 = b.a0
	}
	b.b1 = 2 * (k*k - 1) * norm
	b.b2 = (1 - k/biquadQ + k*k) * norm
}

// Process pushes one sample through the filter (transposed direct form II).
func (b *Biquad) Process(in float64) float64 {
	out := in*b.a0 + b.z1
	b.z1 = in*b.a1 + b.z2 - b.b1*out
	b.z2 = in*b.a2 - b.b2*out
	return out
}

// Reset zeroes the filter's internal state without changing coefficients.
func (b *Biquad) Reset() {
	b.z1, b.z2 = 0, 0
}
