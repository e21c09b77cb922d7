package filter

import "math"

// PT1 is a first-order pole (single-pole lowpass) filter, used by the PID
// core's derivative term (spec.md §4.5).
type PT1 struct {
	state float64
	ema   float64 // precomputed smoothing coefficient
}

// NewPT1 builds a PT1 filter with cutoff cutoffHz at sample rate sampleHz.
func NewPT1(cutoffHz, sampleHz float64) *PT1 {
	p := &PT1{}
	p.Configure(cutoffHz, sampleHz)
	return p
}

// Configure retunes the cutoff without resetting the filter's state.
func (p *PT1) Configure(cutoffHz, sampleHz float64) {
	rc := 1 / (2 * math.Pi * cutoffHz)
	dt := 1 / sampleHz
	p.ema = dt / (rc + dt)
}

// Process pushes one sample through the filter.
func (p *PT1) Process(in float64) float64 {
	p.state = p.state + p.ema*(in-p.state)
	return p.state
}

// State returns the filter's last output without advancing it.
func (p *PT1) State() float64 {
	return p.state
}

// Reset zeroes the filter's internal state.
func (p *PT1) Reset() {
	p.state = 0
}
