package setpoint

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/filter"
)

// ATR is the adaptive torque response shaper ("torque tilt", spec.md
// §4.4): it compares the acceleration the current motor current should
// produce against the acceleration actually measured, and lifts the nose
// or tail to compensate for the difference (uphill grade, mud, a curb).
// Grounded on apply_torquetilt() in app_balance.c.
type ATR struct {
	d *config.Derived

	currentFilter *filter.Biquad

	filteredCurrent   float64
	accelGap          float64
	accelGapAggregate float64

	Target       float64
	Interpolated float64

	// LastStepReason mirrors the `sss` diagnostic in app_balance.c: the
	// numbered branch that selected this tick's step size, exposed for the
	// debug dashboard (spec.md §6.5).
	LastStepReason int

	cutbackMinSpeed float64
}

// NewATR builds an ATR shaper. currentFilterFc is the normalized cutoff
// (torquetilt_filter/hertz) for the current low-pass, cutbackMinSpeed is
// the erpm floor above which a turn cutback (from the turn-tilt shaper)
// overrides the torque-tilt step size.
func NewATR(derived *config.Derived, currentFilterFc, cutbackMinSpeed float64) *ATR {
	return &ATR{
		d:               derived,
		currentFilter:   filter.NewBiquad(filter.Lowpass, currentFilterFc),
		cutbackMinSpeed: cutbackMinSpeed,
	}
}

func (a *ATR) Reset() {
	a.currentFilter.Reset()
	a.filteredCurrent = 0
	a.accelGap = 0
	a.accelGapAggregate = 0
	a.Target = 0
	a.Interpolated = 0
	a.LastStepReason = -1
}

// Input is the per-tick state apply_torquetilt() reads.
type ATRInput struct {
	MotorCurrent float64
	ERPM         float64
	AbsERPM      float64
	Acceleration float64
	Pitch        float64
	Setpoint     float64
	Proportional float64
	PIDValue     float64

	Cutback bool
}

// Apply advances the shaper by one tick and returns the bias to add to the
// setpoint.
func (a *ATR) Apply(in ATRInput) float64 {
	d := a.d
	if d.TorquetiltStrengthUphill == 0 {
		return a.Interpolated
	}

	a.filteredCurrent = a.currentFilter.Process(in.MotorCurrent)
	torqueSign := sign(a.filteredCurrent)
	absTorque := abs(a.filteredCurrent)
	torqueOffset := d.TorquetiltStartCurrent

	strength := d.TorquetiltStrengthUphill
	braking := false
	if in.AbsERPM > 250 && torqueSign != sign(in.ERPM) {
		braking = true
	}

	measuredAcc := in.Acceleration
	if measuredAcc > 5 {
		measuredAcc = 5
	}

	var expectedAcc float64
	if absTorque < 25 {
		expectedAcc = (a.filteredCurrent - sign(in.ERPM)*torqueOffset) / d.AccelFactor
	} else {
		expectedAcc = (torqueSign*25 - sign(in.ERPM)*torqueOffset) / d.AccelFactor
		expectedAcc += torqueSign * (absTorque - 25) / d.AccelFactor2
	}

	staticClimb := false
	accDiff := expectedAcc - measuredAcc
	switch {
	case in.AbsERPM > 2000:
		a.accelGap = 0.9*a.accelGap + 0.1*accDiff
	case in.AbsERPM > 1000:
		a.accelGap = 0.95*a.accelGap + 0.05*accDiff
	case in.AbsERPM > 250:
		a.accelGap = 0.98*a.accelGap + 0.02*accDiff
	default:
		switch {
		case abs(expectedAcc) < 1:
			a.accelGap = 0
		case abs(expectedAcc) < 1.5:
			if abs(a.accelGap) > 1 {
				a.accelGap = 0.9*a.accelGap + 0.1*accDiff
				staticClimb = true
			} else {
				a.accelGap = 0.99*a.accelGap + 0.01*accDiff
			}
		default:
			if abs(a.accelGap) > 1 {
				a.accelGap = 0.9*a.accelGap + 0.1*accDiff
				staticClimb = true
			} else {
				a.accelGap = 0.95*a.accelGap + 0.05*accDiff
			}
		}
	}

	if sign(a.accelGapAggregate) == sign(a.accelGap) {
		a.accelGapAggregate += a.accelGap
	} else {
		a.accelGapAggregate = 0
	}

	newTarget := strength * a.accelGap
	cutbackResponse := false
	if in.Cutback && in.AbsERPM > a.cutbackMinSpeed {
		if sign(newTarget) == sign(in.ERPM) {
			newTarget /= 4
		} else {
			newTarget *= 1.5
		}
		cutbackResponse = true
	} else if braking && in.AbsERPM > 1000 && sign(in.Proportional) != sign(in.ERPM) {
		downhillDamper := 1.0
		if (in.ERPM > 1000 && a.accelGap < -1) || (in.ERPM < -1000 && a.accelGap > 1) {
			downhillDamper += abs(a.accelGap) / 2
		}
		newTarget += (in.Pitch - in.Setpoint) / d.TTTBrakeRatio / downhillDamper
	}

	a.Target = a.Target*0.95 + 0.05*newTarget
	a.Target = clampAbs(a.Target, d.TorquetiltAngleLimit)

	step, reason := a.stepSize(in, cutbackResponse, braking, staticClimb)
	a.LastStepReason = reason

	diff := a.Target - a.Interpolated
	switch {
	case abs(diff) < step:
		a.Interpolated = a.Target
	case diff > 0:
		a.Interpolated += step
	default:
		a.Interpolated -= step
	}
	return a.Interpolated
}

// stepSize implements the branch table selecting how fast torque tilt
// slews toward its target, grounded verbatim on the sss-numbered branches
// of apply_torquetilt().
func (a *ATR) stepSize(in ATRInput, cutbackResponse, braking, staticClimb bool) (float64, int) {
	d := a.d
	on, off := d.TorquetiltOnStepSize, d.TorquetiltOffStepSize

	if in.AbsERPM < 500 && abs(a.accelGap) < 2 {
		return off, 0
	}
	if cutbackResponse {
		if !braking {
			return on / 2, 28
		}
		return on, 18
	}

	if in.ERPM > 0 {
		if a.Interpolated < 0 {
			// downhill
			if a.Interpolated < a.Target {
				switch {
				case a.accelGap > 1 && a.accelGapAggregate > 20:
					return on, 17
				case in.Pitch < in.Setpoint && in.PIDValue > 0 && a.accelGap > 0.5:
					return on, 11
				default:
					return off, 21
				}
			}
			switch {
			case abs(a.accelGap) < 0.5:
				return off, 23
			case braking:
				return on / 2, 1
			default:
				return on, 2
			}
		}
		// uphill or heavy resistance
		if a.Target > -3 && a.Interpolated > a.Target {
			switch {
			case in.AbsERPM < 1000 && in.Pitch < 0.5:
				return off, 29
			case in.AbsERPM < 2000 && (a.Interpolated-a.Target) > 2:
				return on / 3, 4
			case in.AbsERPM > 2000 && a.Target < 0:
				return on / 2, 19
			default:
				return off, 22
			}
		}
		switch {
		case abs(a.accelGap) < 0.5:
			return off, 27
		case in.AbsERPM < 1000:
			s := on / 2
			if staticClimb {
				return s * 1.5, 31
			}
			return s, 5
		default:
			s := on
			if staticClimb {
				return s * 1.5, 31
			}
			return s, 6
		}
	}

	if a.Interpolated > 0 {
		// downhill (erpm <= 0)
		if a.Interpolated > a.Target && a.Target > -3 {
			if in.Pitch > in.Setpoint && in.PIDValue < 0 && a.accelGap < 0 {
				return on, 12
			}
			return off, 24
		}
		if braking {
			return on / 2, 13
		}
		return on, 14
	}

	// uphill or heavy resistance (erpm <= 0, torquetilt <= 0)
	if a.Target < 3 && a.Interpolated < a.Target {
		if in.AbsERPM < 1000 && in.Pitch > -0.5 {
			return off, 8
		}
		return off, 25
	}
	switch {
	case a.accelGap == 0:
		return off, 26
	case in.AbsERPM < 1000:
		s := on / 2
		if staticClimb {
			return s * 1.5, 32
		}
		return s, 9
	default:
		s := on
		if staticClimb {
			return s * 1.5, 32
		}
		return s, 10
	}
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
