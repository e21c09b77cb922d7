// Package supervisor implements the ride/fault state machine (spec.md
// §4.6, component C7): STARTUP, the four RUNNING variants, and the seven
// FAULT_* states, including FAULT_DUTY's stickiness and the
// STARTUP gate a freshly-flashed motor controller can never pass.
// Grounded on the `switch (state)` block of the balance thread and
// reset_vars() in original_source/applications/app_balance.c.
package supervisor

import (
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/faults"
	"github.com/relabs-tech/balance-core/internal/lockgesture"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/setpoint"
)

// State mirrors BalanceState in app_balance.c, including its gap at 5
// (reserved in the original enum, never assigned).
type State int

const (
	Startup                 State = 0
	Running                 State = 1
	RunningTiltbackDuty     State = 2
	RunningTiltbackHV       State = 3
	RunningTiltbackLV       State = 4
	FaultAnglePitch         State = 6
	FaultAngleRoll          State = 7
	FaultSwitchHalf         State = 8
	FaultSwitchFull         State = 9
	FaultDuty               State = 10
	FaultStartup            State = 11
	FaultReverse            State = 12
)

func (s State) String() string {
	switch s {
	case Startup:
		return "STARTUP"
	case Running:
		return "RUNNING"
	case RunningTiltbackDuty:
		return "RUNNING_TILTBACK_DUTY"
	case RunningTiltbackHV:
		return "RUNNING_TILTBACK_HIGH_VOLTAGE"
	case RunningTiltbackLV:
		return "RUNNING_TILTBACK_LOW_VOLTAGE"
	case FaultAnglePitch:
		return "FAULT_ANGLE_PITCH"
	case FaultAngleRoll:
		return "FAULT_ANGLE_ROLL"
	case FaultSwitchHalf:
		return "FAULT_SWITCH_HALF"
	case FaultSwitchFull:
		return "FAULT_SWITCH_FULL"
	case FaultDuty:
		return "FAULT_DUTY"
	case FaultStartup:
		return "FAULT_STARTUP"
	case FaultReverse:
		return "FAULT_REVERSE"
	default:
		return "UNKNOWN"
	}
}

func (s State) isRunning() bool {
	return s >= Running && s <= RunningTiltbackLV
}

func (s State) isFault() bool {
	return s >= FaultAnglePitch && s <= FaultReverse
}

func stateForMode(m setpoint.Mode) State {
	switch m {
	case setpoint.TiltbackDuty:
		return RunningTiltbackDuty
	case setpoint.TiltbackHV:
		return RunningTiltbackHV
	case setpoint.TiltbackLV:
		return RunningTiltbackLV
	default:
		return Running
	}
}

func stateForFault(k faults.Kind) State {
	switch k {
	case faults.SwitchFull:
		return FaultSwitchFull
	case faults.SwitchHalf:
		return FaultSwitchHalf
	case faults.AnglePitch:
		return FaultAnglePitch
	case faults.AngleRoll:
		return FaultAngleRoll
	case faults.Duty:
		return FaultDuty
	case faults.Reverse:
		return FaultReverse
	default:
		return FaultStartup
	}
}

// Input is the per-tick state the supervisor reads.
type Input struct {
	Pitch, Roll  float64
	Switch       pad.SwitchState
	AbsDutyCycle float64
	AbsERPM      float64
	Voltage      float64

	Mode              setpoint.Mode // current setpoint director mode, used to pick the RUNNING* substate
	ReverseStopActive bool
	ReverseTotalERPM  float64

	MotorIsDefault bool // motor.Config.IsDefault: factory FOC values never overwritten, spec.md §6.1
	IMUStartupDone bool

	Pad1, Pad2 float64 // raw foot-pad ADC volts, for the lock gesture
}

// Output tells the caller what to do with the motor this tick.
type Output struct {
	State       State
	ShouldRun   bool // run the full sampler->shapers->PID->actuator pipeline
	ShouldBrake bool // hold the brake current instead
	JustReset   bool // reset_vars() fired this tick; downstream state was just reinitialized
}

// Supervisor owns the ride/fault state and its own housekeeping counters
// (inactivity timer, lock gesture). It never touches the PID/shaper state
// directly; the onReset callback passed to Update is invoked with the
// current pitch whenever reset_vars() fires so the caller can reset the
// modules it owns.
type Supervisor struct {
	d    *config.Derived
	host ports.Host
	det  *faults.Detector
	lock *lockgesture.Recognizer

	state State

	inactivityArmed        bool
	inactivityTicks        float64
	inactivityTimeoutTicks float64
}

// New builds a Supervisor starting in STARTUP.
func New(derived *config.Derived, host ports.Host, det *faults.Detector, lock *lockgesture.Recognizer) *Supervisor {
	return &Supervisor{
		d:     derived,
		host:  host,
		det:   det,
		lock:  lock,
		state: Startup,
	}
}

// State reports the current ride/fault state.
func (s *Supervisor) State() State {
	return s.state
}

// Update advances the supervisor by one tick. onReset is called with the
// pitch angle whenever the board re-enters CENTERING (reset_vars());
// the caller is expected to reset its director, PID core, shapers and
// actuator from within it.
func (s *Supervisor) Update(in Input, onReset func(pitch float64)) Output {
	switch {
	case s.state == Startup:
		return s.updateStartup(in, onReset)
	case s.state.isRunning():
		return s.updateRunning(in)
	case s.state == FaultDuty:
		return s.updateFaultDuty(in)
	default:
		return s.updateFault(in, onReset)
	}
}

func (s *Supervisor) updateStartup(in Input, onReset func(pitch float64)) Output {
	if !in.IMUStartupDone {
		return Output{State: s.state, ShouldBrake: true}
	}
	if in.MotorIsDefault {
		// Factory FOC values were never overwritten: this can't be a
		// correctly configured motor. Nag and refuse to leave STARTUP.
		s.host.BeepAlert(1, true)
		return Output{State: s.state, ShouldBrake: true}
	}

	onReset(in.Pitch)
	s.state = FaultStartup
	s.inactivityArmed = false
	s.lock.Reset()

	threshold := s.d.TiltbackLV + 5
	if in.Voltage < threshold {
		beeps := int(threshold-in.Voltage) + 1
		if beeps > 10 {
			beeps = 10
		}
		s.host.BeepAlert(beeps, false)
	}

	return Output{State: s.state, ShouldBrake: true, JustReset: true}
}

func (s *Supervisor) updateRunning(in Input) Output {
	s.inactivityArmed = false

	fi := faults.Input{
		Pitch:             in.Pitch,
		Roll:              in.Roll,
		AbsDutyCycle:      in.AbsDutyCycle,
		AbsERPM:           in.AbsERPM,
		Switch:            in.Switch,
		ReverseStopActive: in.ReverseStopActive,
		ReverseTotalERPM:  in.ReverseTotalERPM,
	}
	if kind, fired := s.det.Detect(fi, false); fired {
		s.state = stateForFault(kind)
		return Output{State: s.state, ShouldBrake: true}
	}

	s.state = stateForMode(in.Mode)
	return Output{State: s.state, ShouldRun: true}
}

// updateFaultDuty implements FAULT_DUTY's stickiness: check_faults is
// re-invoked every tick with ignoreTimers=true so that any other fault
// predicate can immediately take over, but the state is never cleared on
// its own — a subsiding duty cycle alone never lets the board leave this
// state.
func (s *Supervisor) updateFaultDuty(in Input) Output {
	fi := faults.Input{
		Pitch:             in.Pitch,
		Roll:              in.Roll,
		AbsDutyCycle:      in.AbsDutyCycle,
		AbsERPM:           in.AbsERPM,
		Switch:            in.Switch,
		ReverseStopActive: in.ReverseStopActive,
		ReverseTotalERPM:  in.ReverseTotalERPM,
	}
	if kind, fired := s.det.Detect(fi, true); fired && kind != faults.Duty {
		s.state = stateForFault(kind)
	}
	return Output{State: s.state, ShouldBrake: true}
}

func (s *Supervisor) updateFault(in Input, onReset func(pitch float64)) Output {
	// FAULT_STARTUP suppresses the inactivity nag unless the battery is
	// close to the low-voltage tiltback threshold: an idle board sitting
	// on a charger should stay quiet.
	suppressInactivity := s.state == FaultStartup && in.Voltage >= s.d.TiltbackLV+2
	if !suppressInactivity {
		s.tickInactivity()
	}

	s.lock.Update(in.Switch, in.Pad1, in.Pad2)

	if !s.lock.Locked &&
		abs(in.Pitch) < s.d.StartupPitchTolerance &&
		abs(in.Roll) < s.d.StartupRollTolerance &&
		in.Switch == pad.On {
		onReset(in.Pitch)
		s.state = Running
		return Output{State: s.state, ShouldRun: true, JustReset: true}
	}

	return Output{State: s.state, ShouldBrake: true}
}

func (s *Supervisor) tickInactivity() {
	if !s.inactivityArmed {
		s.inactivityArmed = true
		s.inactivityTicks = 0
		s.inactivityTimeoutTicks = s.d.InactivityTimeout.Seconds() * float64(s.d.Hertz)
		return
	}
	if s.inactivityTimeoutTicks <= 0 {
		return // disabled
	}
	s.inactivityTicks++
	if s.inactivityTicks > s.inactivityTimeoutTicks {
		s.host.BeepAlert(3, false)
		s.inactivityTicks = 0
		s.inactivityTimeoutTicks = 10 * float64(s.d.Hertz) // nag again in 10s
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
