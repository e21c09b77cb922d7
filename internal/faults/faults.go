// Package faults implements the supervisory fault detector (spec.md §4.2,
// component C3): a priority-ordered set of predicates over the sampled
// state, each gated by its own debounce hold-off, grounded on
// check_faults() in original_source/applications/app_balance.c.
package faults

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/pad"
)

// Kind identifies which fault fired, or None if the tick was clean.
type Kind int

const (
	None Kind = iota
	SwitchFull
	SwitchHalf
	AnglePitch
	AngleRoll
	Duty
	Reverse
)

func (k Kind) String() string {
	switch k {
	case SwitchFull:
		return "SWITCH_FULL"
	case SwitchHalf:
		return "SWITCH_HALF"
	case AnglePitch:
		return "ANGLE_PITCH"
	case AngleRoll:
		return "ANGLE_ROLL"
	case Duty:
		return "DUTY"
	case Reverse:
		return "REVERSE"
	default:
		return "NONE"
	}
}

// Input is the per-tick state check_faults() reads.
type Input struct {
	Pitch        float64
	Roll         float64
	AbsDutyCycle float64
	AbsERPM      float64
	Switch       pad.SwitchState

	// ReverseStopActive is true while the setpoint director is in the
	// REVERSESTOP mode (spec.md §4.3); the reverse-specific block only
	// evaluates while this holds.
	ReverseStopActive bool
	ReverseTotalERPM  float64
}

// Detector holds the debounce state for every predicate, measured in
// ticks elapsed since the predicate most recently went false (or since
// construction). One Detector drives one board loop.
type Detector struct {
	d *config.Derived

	switchFullTicks float64
	switchHalfTicks float64
	pitchTicks      float64
	rollTicks       float64
	dutyTicks       float64
	reverseTicks    float64

	reverseTolerance float64
}

// New builds a Detector bound to the derived configuration. reverseTolerance
// is the aggregate-erpm threshold used by the reverse-stop setpoint shaper
// and its fault check (app_balance.c's reverse_tolerance, fixed at 50000).
func New(derived *config.Derived, reverseTolerance float64) *Detector {
	return &Detector{d: derived, reverseTolerance: reverseTolerance}
}

// Detect evaluates every fault predicate in priority order and returns the
// first one that fires. ignoreTimers bypasses every debounce hold-off
// (spec.md §4.2's FAULT_DUTY stickiness: the supervisor re-invokes Detect
// with ignoreTimers=true every tick while already in FAULT_DUTY, so any
// other predicate immediately takes over and the motor stays disabled
// until one does).
//
// When no predicate fires, Detect returns (None, false) and the caller is
// responsible for preserving whatever fault state it already held — Detect
// never clears a fault on its own, mirroring check_faults() only ever
// setting `state`, never resetting it.
func (f *Detector) Detect(in Input, ignoreTimers bool) (Kind, bool) {
	d := f.d

	switchFaulted := false
	if in.Switch == pad.Off {
		f.switchFullTicks++
		switch {
		case ignoreTimers || f.switchFullTicks > d.FaultDelaySwitchFull:
			switchFaulted = true
		case in.AbsERPM < d.FaultADCHalfERPM*4 && f.switchFullTicks > d.FaultDelaySwitchHalf:
			switchFaulted = true
		case in.AbsERPM < d.FaultADCHalfERPM && abs(in.Pitch) > 15:
			// quick stop: foot off at near-zero speed and already tipping
			switchFaulted = true
		case in.AbsERPM > 3000 && d.ForbidHighSpeedFullSwitch:
			f.switchFullTicks = 0
		}
	} else {
		f.switchFullTicks = 0
	}
	if switchFaulted {
		return SwitchFull, true
	}

	if in.ReverseStopActive {
		if in.Switch == pad.Off {
			return SwitchFull, true
		}
		if abs(in.Pitch) > 15 {
			return Reverse, true
		}
		if abs(in.Pitch) > 10 && f.reverseTicks > secondsToTicks(0.5, d) {
			return Reverse, true
		}
		if abs(in.Pitch) > 5 && f.reverseTicks > secondsToTicks(1.0, d) {
			return Reverse, true
		}
		if abs(in.ReverseTotalERPM) > f.reverseTolerance*3 {
			return Reverse, true
		}
		if abs(in.Pitch) < 5 {
			f.reverseTicks = 0
		} else {
			f.reverseTicks++
		}
	}

	if (in.Switch == pad.Half || in.Switch == pad.Off) && in.AbsERPM < d.FaultADCHalfERPM {
		f.switchHalfTicks++
		if ignoreTimers || f.switchHalfTicks > d.FaultDelaySwitchHalf {
			return SwitchHalf, true
		}
	} else {
		f.switchHalfTicks = 0
	}

	if abs(in.Pitch) > d.FaultPitch {
		f.pitchTicks++
		if ignoreTimers || f.pitchTicks > d.FaultDelayPitch {
			return AnglePitch, true
		}
	} else {
		f.pitchTicks = 0
	}

	if abs(in.Roll) > d.FaultRoll {
		f.rollTicks++
		if ignoreTimers || f.rollTicks > d.FaultDelayRoll {
			return AngleRoll, true
		}
	} else {
		f.rollTicks = 0
	}

	if in.AbsDutyCycle > d.FaultDuty {
		f.dutyTicks++
		if ignoreTimers || f.dutyTicks > d.FaultDelayDuty {
			return Duty, true
		}
	} else {
		f.dutyTicks = 0
	}

	return None, false
}

func secondsToTicks(s float64, d *config.Derived) float64 {
	return s * float64(d.Hertz)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
