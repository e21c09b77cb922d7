package setpoint

import "github.com/relabs-tech/balance-core/internal/config"

// TurnTilt leans the board into a turn proportional to yaw rate, boosted
// by speed and by how long the turn has persisted, and backs off when the
// torque-tilt shaper is already fighting a grade (spec.md §4.4's ATR
// interference rule). Grounded on apply_turntilt().
type TurnTilt struct {
	d *config.Derived

	Target       float64
	Interpolated float64

	cutback bool

	rollAggregateThreshold float64
	boostPerERPM           float64
}

func NewTurnTilt(derived *config.Derived, rollAggregateThreshold, boostPerERPM float64) *TurnTilt {
	return &TurnTilt{d: derived, rollAggregateThreshold: rollAggregateThreshold, boostPerERPM: boostPerERPM}
}

func (t *TurnTilt) Reset() {
	t.Target = 0
	t.Interpolated = 0
	t.cutback = false
}

// Cutback reports whether the previous tick detected a banked turn that
// the ATR shaper should treat as a turn cutback.
func (t *TurnTilt) Cutback() bool { return t.cutback }

// TurnTiltInput is the per-tick state apply_turntilt() reads.
type TurnTiltInput struct {
	AbsERPM       float64
	ERPM          float64
	YawChange     float64
	YawAggregate  float64
	Roll          float64
	RollAggregate float64
	Pitch         float64
	NoseBias      float64
	Running       bool // state == RUNNING, tiltback states suppress turn tilt
	CutbackEnable bool

	TorquetiltTarget float64
}

// Apply advances the shaper and returns the bias to add to the setpoint.
func (t *TurnTilt) Apply(in TurnTiltInput) float64 {
	d := t.d
	absYawScaled := abs(in.YawChange) * 100

	if absYawScaled < d.TurntiltStartAngle || !in.Running {
		t.Target = 0
	} else {
		if in.CutbackEnable {
			bankedTurn := sign(in.YawChange) == sign(in.Roll)
			t.cutback = banked(bankedTurn, in.RollAggregate, t.rollAggregateThreshold, absYawScaled, in.YawChange, in.Roll)
		} else {
			t.cutback = false
		}

		target := abs(in.YawChange) * d.TurntiltStrength

		var boost float64
		if in.AbsERPM < d.TurntiltERPMBoostEnd {
			boost = 1.0 + in.AbsERPM*t.boostPerERPM
		} else {
			boost = 1.0 + d.TurntiltERPMBoost/100.0
		}
		target *= boost

		aggregateDamper := 1.0
		if in.AbsERPM < 2000 {
			aggregateDamper = 0.5
		}
		boost = 1 + aggregateDamper*abs(in.YawAggregate)/d.YawAggregateTarget
		if boost > 2 {
			boost = 2
		}
		target *= boost

		if target > d.TurntiltAngleLimit {
			target = d.TurntiltAngleLimit
		}

		if in.AbsERPM < d.TurntiltStartERPM {
			target = 0
		} else {
			target *= sign(in.ERPM)
		}

		atrMin, atrMax := 2.0, 5.0
		if sign(in.TorquetiltTarget) != sign(target) {
			atrMin, atrMax = 1.0, 4.0
		}
		if abs(in.TorquetiltTarget) > atrMin {
			if t.cutback {
				target = -target
			} else {
				atrScaling := (atrMax - abs(in.TorquetiltTarget)) / (atrMax - atrMin)
				if atrScaling < 0 {
					atrScaling = 0
				}
				target *= atrScaling
			}
		} else if t.cutback {
			target = 0
		}

		if abs(in.Pitch-in.NoseBias) > 4 {
			target = 0
		}

		t.Target = target
	}

	step := d.TurntiltStepSize
	diff := t.Target - t.Interpolated
	switch {
	case abs(diff) < step:
		t.Interpolated = t.Target
	case diff > 0:
		t.Interpolated += step
	default:
		t.Interpolated -= step
	}
	return t.Interpolated
}

func banked(bankedTurn bool, rollAggregate, rollAggregateThreshold, absYawScaled, yawChange, roll float64) bool {
	return bankedTurn &&
		abs(rollAggregate) > rollAggregateThreshold &&
		absYawScaled > 5 &&
		(yawChange*100/roll) < 1
}
