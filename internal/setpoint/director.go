// Package setpoint implements the setpoint director and shapers (spec.md
// §4.3/§4.4, components C4/C5): the supervisory target-pitch selection
// (centering, tiltback, reverse-stop) and the nose-angle/torque-tilt/
// turn-tilt bias shapers layered on top of it, grounded on
// calculate_setpoint_target(), calculate_setpoint_interpolated(),
// apply_noseangling(), apply_torquetilt() and apply_turntilt() in
// original_source/applications/app_balance.c.
package setpoint

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/ports"
)

// Mode is the setpoint adjustment type driving both the step size used to
// slew toward the target and the RUNNING* sub-state the supervisor
// reports (spec.md §4.6).
type Mode int

// Mode values are ordered to match SetpointAdjustmentType in
// app_balance.c: CENTERING < REVERSESTOP < TILTBACK_NONE < TILTBACK_DUTY
// < TILTBACK_HV < TILTBACK_LV, so that `mode >= TiltbackNone` reproduces
// the upstream `setpointAdjustmentType >= TILTBACK_NONE` gain-blend guard
// (pidcore.Core.blendGains) without restating the predicate per mode.
const (
	Centering Mode = iota
	ReverseStop
	TiltbackNone
	TiltbackDuty
	TiltbackHV
	TiltbackLV
)

func (m Mode) String() string {
	switch m {
	case Centering:
		return "CENTERING"
	case TiltbackDuty:
		return "TILTBACK_DUTY"
	case TiltbackHV:
		return "TILTBACK_HV"
	case TiltbackLV:
		return "TILTBACK_LV"
	case ReverseStop:
		return "REVERSESTOP"
	default:
		return "TILTBACK_NONE"
	}
}

// Input is the per-tick state calculate_setpoint_target() reads.
type Input struct {
	Voltage      float64
	FetTemp      float64
	FetTempLimit float64 // motor.Config.FetTempStart - 2, mc_max_temp_fet in configure() (app_balance.c:501)
	AbsDutyCycle float64
	ERPM         float64
	Pitch        float64

	UseReverseStop bool
}

// Director tracks the running setpoint target and its slewed
// (interpolated) value across ticks.
type Director struct {
	d    *config.Derived
	host ports.Host

	Mode Mode

	Target              float64
	TargetInterpolated  float64

	softStartTicks   float64
	hvExceededTicks  float64
	reverseTotalERPM float64

	reverseTolerance float64

	useSoftStart bool
}

// New builds a Director. Call Reset once at startup (and again on every
// STARTUP->CENTERING re-entry, spec.md §4.6) before the first Update.
func New(derived *config.Derived, host ports.Host, useSoftStart bool, reverseTolerance float64) *Director {
	return &Director{d: derived, host: host, useSoftStart: useSoftStart, reverseTolerance: reverseTolerance}
}

// ReverseTotalERPM exposes the accumulated erpm-while-reversing total, fed
// to the fault detector's reverse-stop predicate (spec.md §4.2).
func (dir *Director) ReverseTotalERPM() float64 {
	return dir.reverseTotalERPM
}

// Reset re-enters CENTERING with the interpolated setpoint starting at half
// the current pitch, mirroring reset_vars()'s setpoint_target_interpolated = pitch_angle/2.
func (dir *Director) Reset(pitch float64) {
	dir.Mode = Centering
	dir.Target = 0
	dir.TargetInterpolated = pitch / 2
	dir.softStartTicks = 0
	dir.hvExceededTicks = 0
	dir.reverseTotalERPM = 0
}

// Update advances the director by one tick and returns the slewed setpoint
// target for this tick (before any shaper bias is applied).
func (dir *Director) Update(in Input) float64 {
	d := dir.d

	if in.Voltage < d.TiltbackHV {
		dir.hvExceededTicks = 0
	}

	switch {
	case dir.Mode == Centering:
		if dir.TargetInterpolated != dir.Target {
			dir.softStartTicks = 0
		} else if dir.softStartTicks > 0.5*float64(d.Hertz) {
			dir.Mode = TiltbackNone
		} else if !dir.useSoftStart {
			dir.Mode = TiltbackNone
		}
		dir.softStartTicks++

	case dir.Mode == ReverseStop:
		dir.reverseTotalERPM += in.ERPM
		if abs(dir.reverseTotalERPM) > dir.reverseTolerance {
			dir.Target = 10 * (abs(dir.reverseTotalERPM) - dir.reverseTolerance) / 50000
		} else if abs(dir.reverseTotalERPM) <= dir.reverseTolerance/2 && in.ERPM >= 0 {
			dir.Mode = TiltbackNone
			dir.reverseTotalERPM = 0
			dir.Target = 0
		}

	case in.AbsDutyCycle > d.TiltbackDuty:
		dir.Target = signed(d.TiltbackDutyAngle, in.ERPM)
		dir.Mode = TiltbackDuty

	case in.Voltage > d.TiltbackHV:
		dir.hvExceededTicks++
		if dir.hvExceededTicks > 0.5*float64(d.Hertz) || in.Voltage > d.TiltbackHV+1 {
			dir.Target = signed(d.TiltbackHVAngle, in.ERPM)
			dir.Mode = TiltbackHV
		} else {
			dir.Mode = TiltbackNone
		}
		if dir.host != nil {
			dir.host.BeepAlert(3, false)
		}

	case in.Voltage < d.TiltbackLV:
		dir.Target = signed(d.TiltbackLVAngle, in.ERPM)
		dir.Mode = TiltbackLV
		if dir.host != nil {
			dir.host.BeepAlert(3, false)
		}

	case in.FetTemp > in.FetTempLimit:
		if dir.host != nil {
			dir.host.BeepAlert(3, true)
		}
		if in.FetTemp > in.FetTempLimit+1 {
			dir.Target = signed(d.TiltbackLVAngle, in.ERPM)
			dir.Mode = TiltbackLV
		} else {
			dir.Mode = TiltbackNone
		}

	default:
		if in.UseReverseStop && in.ERPM < 0 {
			dir.Mode = ReverseStop
			dir.reverseTotalERPM = 0
		} else {
			dir.Mode = TiltbackNone
		}
		dir.Target = 0
	}

	dir.stepToward()
	return dir.TargetInterpolated
}

// stepToward slews TargetInterpolated toward Target by the current mode's
// step size, snapping onto Target once it is less than one step away.
func (dir *Director) stepToward() {
	step := dir.stepSize()
	diff := dir.Target - dir.TargetInterpolated
	switch {
	case abs(diff) < step:
		dir.TargetInterpolated = dir.Target
	case diff > 0:
		dir.TargetInterpolated += step
	default:
		dir.TargetInterpolated -= step
	}
}

func (dir *Director) stepSize() float64 {
	d := dir.d
	switch dir.Mode {
	case Centering:
		return d.StartupStepSize
	case TiltbackDuty:
		return d.TiltbackDutyStepSize
	case TiltbackHV:
		return d.TiltbackHVStepSize
	case TiltbackLV:
		return d.TiltbackLVStepSize
	case ReverseStop:
		return d.ReverseStopStepSize
	default:
		return d.TiltbackReturnStepSize
	}
}

func signed(mag, erpm float64) float64 {
	if erpm > 0 {
		return mag
	}
	return -mag
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
