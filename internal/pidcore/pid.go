// Package pidcore implements the balance PID core (spec.md §4.5,
// component C6): proportional/integral/derivative control of pitch with
// adaptive gains, center stiffening, acceleration boost and a combined
// P+D brake clamp, grounded on the PID section of the balance thread in
// original_source/applications/app_balance.c (from "Do PID maths"
// onward).
package pidcore

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/filter"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/setpoint"
)

// Core holds the smoothed PID gains and all state that persists across
// ticks (integral, the D-term filter, center-stiffening counters).
type Core struct {
	d    *config.Derived
	host ports.Host

	kp, ki, kd float64

	integral    float64
	lastPitch   float64
	havePitch   bool
	dFilter     *filter.PT1

	centerStiffnessTicks int
	centerJerkCounter    int
	centerJerkDuration   int
	centerJerkAdder      float64

	pidValue        float64
	currentLimiting bool

	useSoftStart bool

	// MaxBrakeAmps/MaxDerivative resolve the config.Derived sentinel-zero
	// fallback (spec.md §6.4) against the motor's reported current
	// ceiling the first time Resolve is called.
	maxBrakeAmps  float64
	maxDerivative float64
	resolved      bool
}

// New builds a Core. useSoftStart mirrors config.Derived.SoftStart.
func New(derived *config.Derived, host ports.Host, useSoftStart bool) *Core {
	c := &Core{
		d:            derived,
		host:         host,
		useSoftStart: useSoftStart,
		dFilter:      filter.NewPT1(derived.KdPT1Frequency, float64(derived.Hertz)),
	}
	c.maxBrakeAmps = derived.MaxBrakeAmps
	c.maxDerivative = derived.MaxDerivative
	return c
}

// LastCurrent returns the pidValue computed by the previous Update call,
// consumed by the ATR shaper's own PID-feedback term (pid_value in
// apply_torquetilt(), original_source/applications/app_balance.c).
func (c *Core) LastCurrent() float64 {
	return c.pidValue
}

// Resolve fills in MaxBrakeAmps/MaxDerivative when the config left them at
// the sentinel zero (spec.md §6.4's "resolve against motor current/2").
// Call once after the motor controller's configuration is known.
func (c *Core) Resolve(motorCurrentMax float64) {
	if c.resolved {
		return
	}
	if c.maxBrakeAmps == 0 {
		c.maxBrakeAmps = motorCurrentMax / 2
	}
	if c.maxDerivative == 0 {
		c.maxDerivative = motorCurrentMax / 2
	}
	c.resolved = true
}

// Reset re-enters CENTERING, mirroring reset_vars()'s PID-side state.
func (c *Core) Reset(pitch float64) {
	d := c.d
	c.integral = 0
	c.lastPitch = pitch
	c.havePitch = true
	c.dFilter.Reset()
	c.pidValue = 0
	c.currentLimiting = false

	if c.useSoftStart {
		c.kp, c.ki, c.kd = 1, 0, 0
	} else {
		c.kp, c.ki, c.kd = d.KPAcc*0.8, d.KIAcc, 0
	}

	c.centerStiffnessTicks = centerStiffnessTicks(d.Hertz)
	c.centerJerkDuration = int(d.CenterJerkDurationMS * float64(d.Hertz) / 1000)
	c.centerJerkCounter = 0
	c.centerJerkAdder = 0
}

func centerStiffnessTicks(hz int) int {
	// START_CENTER_DELAY_MS in app_balance.c is hard-coded assuming a
	// 1kHz loop; scaled here to whatever rate the config specifies.
	return hz
}

// Input is the per-tick state the PID core reads.
type Input struct {
	Setpoint               float64
	Pitch                  float64
	ERPM                   float64
	AbsERPM                float64
	TorquetiltInterpolated float64
	Mode                   setpoint.Mode
}

// Result is what the PID core produces this tick.
type Result struct {
	Current         float64
	Proportional    float64
	CurrentLimiting bool
}

// Update runs one tick of the PID core and returns the requested motor
// current, clamped to the motor's reported current range minus the
// spec.md invariant I3 headroom.
func (c *Core) Update(in Input, currentMin, currentMax float64) Result {
	d := c.d

	proportional := in.Setpoint - in.Pitch
	absProp := abs(proportional)

	c.integral += proportional
	ttImpact := c.integralTTImpact(in.TorquetiltInterpolated, in.AbsERPM)
	c.integral -= in.TorquetiltInterpolated * ttImpact

	if !c.havePitch {
		c.lastPitch = in.Pitch
		c.havePitch = true
	}
	rawDerivative := c.lastPitch - in.Pitch
	c.lastPitch = in.Pitch
	derivative := c.dFilter.Process(rawDerivative)

	braking := sign(proportional) != sign(in.ERPM)

	pMultiplier, diMultiplier := 1.0, 1.0
	const maxDiMult = 1.7
	if abs(in.TorquetiltInterpolated) > 2 {
		pMultiplier = abs(in.TorquetiltInterpolated) / 6 * d.CenterBoostIntensity
		diMultiplier = min(1+pMultiplier/2, maxDiMult)
		pMultiplier = min(1+pMultiplier, 2)
	}

	kpTarget := d.KPAcc * pMultiplier
	kiTarget := d.KIAcc * diMultiplier
	kdTarget := d.KDAcc

	if absProp > d.CenterBoostAngle+0.5 {
		kdTarget = kdTarget * diMultiplier / maxDiMult
	}

	c.blendGains(in.Mode, kpTarget, kiTarget, kdTarget)

	if in.Mode == setpoint.ReverseStop {
		c.integral = 0
	}

	var pidProp, pidDerivative float64
	if c.useSoftStart && in.Mode == setpoint.Centering {
		pidProp = c.kp * proportional
		pidDerivative = c.kd * derivative
		c.pidValue = 0.05*(pidProp+pidDerivative) + 0.95*c.pidValue
		c.integral = 0
		c.ki = 0
	} else {
		pidProp = c.kp * proportional
		centerBoost := min(absProp, d.CenterBoostAngle)

		if c.centerStiffnessTicks > 0 {
			frac := float64(centerStiffnessTicks(d.Hertz)-c.centerStiffnessTicks) / float64(centerStiffnessTicks(d.Hertz))
			pidProp += centerBoost * d.CenterBoostKPAdder * sign(proportional) * frac
			c.centerStiffnessTicks--

			if c.centerJerkCounter < c.centerJerkDuration {
				if c.centerJerkCounter > c.centerJerkDuration/2 {
					c.centerJerkAdder = c.centerJerkAdder*0.95 + d.CenterJerkStrength*0.05
				} else {
					c.centerJerkAdder = c.centerJerkAdder*0.95 - d.CenterJerkStrength*0.05
				}
				pidProp += c.centerJerkAdder
				if c.centerJerkCounter == 0 && c.host != nil {
					c.host.BeepAlert(1, false)
				}
				c.centerJerkCounter++
			}
		} else {
			pidProp += centerBoost * d.CenterBoostKPAdder * sign(proportional)

			accelBoost := 0.0
			if absProp > d.AccelBoostThreshold && !braking {
				boostProp := absProp - d.AccelBoostThreshold
				accelBoost = boostProp * c.kp * d.AccelBoostIntensity
				if absProp > d.AccelBoostThreshold2 {
					boostProp = absProp - d.AccelBoostThreshold2
					accelBoost += boostProp * c.kp * d.AccelBoostIntensity
				}
			}
			pidProp += accelBoost * sign(proportional)
		}

		pidDerivative = c.kd * derivative
		if abs(pidDerivative) > c.maxDerivative {
			pidDerivative = c.maxDerivative * sign(pidDerivative)
		}

		newPD := pidProp + pidDerivative
		if sign(in.ERPM) != sign(newPD) {
			pidMax := max(c.maxBrakeAmps, abs(pidProp))
			tt := abs(in.TorquetiltInterpolated)
			if tt > 2 {
				pidMax *= 0.75 + tt/8
			}
			if in.AbsERPM > 2000 {
				pidMax *= 0.8 + in.AbsERPM/10000
			}
			if abs(newPD) > pidMax {
				newPD = sign(newPD) * pidMax
			}
		}

		pidIntegral := c.ki * c.integral
		c.pidValue = 0.2*(newPD+pidIntegral) + 0.8*c.pidValue
	}

	out := c.pidValue
	limiting := false
	switch {
	case out > currentMax-d.MotorMinCurrentHeadroom:
		out = currentMax - d.MotorMinCurrentHeadroom
		limiting = true
	case out < currentMin+d.MotorMinCurrentHeadroom:
		out = currentMin + d.MotorMinCurrentHeadroom
		limiting = true
	}
	if limiting && c.host != nil {
		c.host.BeepOn(true)
	} else if c.currentLimiting && c.host != nil {
		c.host.BeepOff(false)
	}
	c.currentLimiting = limiting

	return Result{Current: out, Proportional: proportional, CurrentLimiting: limiting}
}

func (c *Core) integralTTImpact(torquetiltInterpolated, absERPM float64) float64 {
	d := c.d
	if torquetiltInterpolated < 0 {
		return d.IntegralTTImpactDownhill
	}
	impact := d.IntegralTTImpactUphill
	const maxImpactERPM = 2500
	const startingImpact = 0.3
	if absERPM < maxImpactERPM {
		erpmScaling := max(startingImpact, absERPM/maxImpactERPM)
		impact = 1.0 - (1.0-impact)*erpmScaling
	}
	return impact
}

// blendGains smooths kp/ki/kd toward their targets at a rate that depends
// on the setpoint mode: quick to stiffen, slow to loosen while riding
// normally; a fixed-rate ease during centering; a hard-coded target while
// stopping a reverse roll-away.
func (c *Core) blendGains(mode setpoint.Mode, kpTarget, kiTarget, kdTarget float64) {
	switch {
	case mode >= setpoint.TiltbackNone:
		if kpTarget > c.kp {
			c.kp = c.kp*0.98 + kpTarget*0.02
			c.ki = c.ki*0.98 + kiTarget*0.02
		} else {
			c.kp = c.kp*0.998 + kpTarget*0.002
			c.ki = c.ki*0.998 + kiTarget*0.002
		}
		c.kd = c.kd*0.98 + kdTarget*0.02

	case mode == setpoint.Centering:
		c.kp = c.kp*0.995 + kpTarget*0.005
		c.ki = c.ki*0.995 + kiTarget*0.005
		c.kd = c.kd*0.995 + kdTarget*0.005

	case mode == setpoint.ReverseStop:
		kpTarget, kdTarget = 2, 400
		c.kp = c.kp*0.99 + kpTarget*0.01
		c.kd = c.kd*0.99 + kdTarget*0.01
		c.ki = 0
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
