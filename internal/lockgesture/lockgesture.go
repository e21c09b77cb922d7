// Package lockgesture implements the 9-step foot-pad lock gesture (spec.md
// §4.7, component C8): switch ON, then OFF, then pad 1 alone, OFF, pad 2
// alone, OFF, pad 1 alone, OFF, pad 2 alone flips a software lock flag,
// persisted through the host port. Grounded on check_lock() in
// original_source/applications/app_balance.c.
package lockgesture

import (
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
)

// Recognizer tracks the gesture's step machine. One Recognizer drives one
// board loop; it observes both the decoded on/half/off switch state and
// the raw pad ADC voltages, since the gesture tells the two pads apart by
// which individual pad tripped.
type Recognizer struct {
	host          ports.Host
	permitPersist bool

	faultADC1 float64
	faultADC2 float64
	debounceTicks float64

	step          int // -1..8, -1 is idle/armed
	ticksSinceStep float64

	Locked bool
}

// New builds a Recognizer. debounceTicks is the minimum ticks between two
// step transitions (50ms in app_balance.c); permitPersist gates whether a
// completed gesture is written through the host (spec.md §6.4's
// nrf_conf.channel==99 gate).
func New(faultADC1, faultADC2, debounceTicks float64, host ports.Host, permitPersist, initiallyLocked bool) *Recognizer {
	return &Recognizer{
		host:          host,
		permitPersist: permitPersist,
		faultADC1:     faultADC1,
		faultADC2:     faultADC2,
		debounceTicks: debounceTicks,
		step:          -1,
		Locked:        initiallyLocked,
	}
}

// Update advances the gesture recognizer by one tick. It reports whether
// the lock flag flipped this tick.
func (r *Recognizer) Update(sw pad.SwitchState, adc1, adc2 float64) (flipped bool) {
	if r.ticksSinceStep < r.debounceTicks {
		r.ticksSinceStep++
		return false
	}

	prev := r.step
	switch r.step {
	case -1:
		if sw == pad.On {
			r.step = 0
		}
	case 0:
		if sw == pad.Off {
			r.step = 1
		}
	case 1:
		switch {
		case adc2 > r.faultADC2:
			r.step = -1
		case adc1 > r.faultADC1:
			r.step = 2
		}
	case 2:
		switch {
		case adc2 > r.faultADC2 || sw == pad.On:
			r.step = -1
		case sw == pad.Off:
			r.step = 3
		}
	case 3:
		switch {
		case adc1 > r.faultADC1:
			r.step = -1
		case adc2 > r.faultADC2:
			r.step = 4
		}
	case 4:
		switch {
		case adc1 > r.faultADC1 || sw == pad.On:
			r.step = -1
		case sw == pad.Off:
			r.step = 5
		}
	case 5:
		switch {
		case adc2 > r.faultADC2:
			r.step = -1
		case adc1 > r.faultADC1:
			r.step = 6
		}
	case 6:
		switch {
		case adc2 > r.faultADC2 || sw == pad.On:
			r.step = -1
		case sw == pad.Off:
			r.step = 7
		}
	case 7:
		switch {
		case adc1 > r.faultADC1:
			r.step = -1
		case adc2 > r.faultADC2:
			r.step = 8
		}
	case 8:
		r.step = -1
		r.Locked = !r.Locked
		flipped = true
		if r.host != nil {
			if r.permitPersist {
				r.host.PersistLock(r.Locked)
			}
			if r.Locked {
				r.host.BeepAlert(2, true)
			} else {
				r.host.BeepAlert(3, false)
			}
		}
	}

	if r.step != prev {
		r.ticksSinceStep = 0
	} else {
		r.ticksSinceStep++
	}
	return flipped
}

// Reset re-arms the recognizer, e.g. on entering a fault/startup state
// where the gesture is evaluated (spec.md §4.6).
func (r *Recognizer) Reset() {
	r.step = -1
	r.ticksSinceStep = 0
}
