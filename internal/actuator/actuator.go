// Package actuator drives the motor controller from a requested current:
// the current-off-delay refresh, the brake-current timeout, and the
// startup engage-click modulation that makes the board audibly/tactilely
// signal that it has started balancing. Grounded on brake() and
// set_current() and the click-modulation block in
// original_source/applications/app_balance.c.
package actuator

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/motor"
)

// Actuator owns the handful of ticks of state needed to turn a PID output
// into calls on the motor controller.
type Actuator struct {
	ctrl motor.Controller

	motorTimeout     float64 // seconds, refreshed via SetCurrentOffDelay on every tick current is set
	brakeCurrent     float64
	brakeTimeoutTicks float64 // 0 disables the brake timeout
	clickCurrent     float64
	clicksMax        int

	brakeDeadlineTicks float64 // ticks remaining before the brake timeout expires, -1 == not yet armed
	clicksRemaining    int
}

// New builds an Actuator bound to a motor controller.
func New(ctrl motor.Controller, d *config.Derived) *Actuator {
	return &Actuator{
		ctrl:               ctrl,
		motorTimeout:       d.MotorTimeout,
		brakeCurrent:       d.BrakeCurrent,
		brakeTimeoutTicks:  d.BrakeTimeoutTicks,
		clickCurrent:       d.ClickCurrent,
		clicksMax:          d.StartCounterClicksMax,
		brakeDeadlineTicks: -1,
	}
}

// ArmStartupClicks re-engages the engage-click modulation, called on every
// STARTUP/FAULT->CENTERING entry (reset_vars()'s start_counter_clicks =
// start_counter_clicks_max).
func (a *Actuator) ArmStartupClicks() {
	a.clicksRemaining = a.clicksMax
}

// Drive applies one tick's requested motor current, modulating it with the
// remaining startup clicks if any are pending.
func (a *Actuator) Drive(current float64) error {
	out := current
	if a.clicksRemaining > 0 {
		a.clicksRemaining--
		if a.clicksRemaining == 0 || a.clicksRemaining == 2 {
			out = current - a.clickCurrent
		} else {
			out = current + a.clickCurrent
		}
	}
	return a.setCurrent(out)
}

func (a *Actuator) setCurrent(current float64) error {
	if err := a.ctrl.SetCurrentOffDelay(a.motorTimeout); err != nil {
		return err
	}
	return a.ctrl.SetCurrent(current)
}

// Brake applies the configured brake current, honoring the brake timeout:
// once abs(erpm) has settled below 1 for longer than BrakeTimeoutTicks, the
// brake current stops being reasserted and the motor coasts (brake() in
// app_balance.c). absERPM is the current tick's |erpm|. The timeout, once
// expired, stays expired until absERPM rises above 1 again rearms it.
func (a *Actuator) Brake(absERPM float64) error {
	if a.brakeTimeoutTicks > 0 {
		if absERPM > 1 || a.brakeDeadlineTicks < 0 {
			a.brakeDeadlineTicks = a.brakeTimeoutTicks
		}
		if a.brakeDeadlineTicks == 0 {
			return nil
		}
		a.brakeDeadlineTicks--
		if a.brakeDeadlineTicks < 0 {
			a.brakeDeadlineTicks = 0
		}
	}
	return a.ctrl.SetBrakeCurrent(a.brakeCurrent)
}

// Reset re-arms the brake timeout, called alongside the PID/director reset
// on every STARTUP/FAULT->CENTERING re-entry.
func (a *Actuator) Reset() {
	a.brakeDeadlineTicks = -1
}
