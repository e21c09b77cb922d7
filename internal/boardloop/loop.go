// Package boardloop wires the sampler, fault detector, setpoint director,
// shapers, PID core and actuator into the fixed-rate control loop the
// supervisor gates (spec.md §4, the whole balance thread in
// original_source/applications/app_balance.c). Ticker cadence and
// overshoot correction are handled by the caller (cmd/boardctl); Loop
// only knows how to advance one tick.
package boardloop

import (
	"fmt"

	"github.com/relabs-tech/balance-core/internal/actuator"
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/faults"
	"github.com/relabs-tech/balance-core/internal/imu"
	"github.com/relabs-tech/balance-core/internal/lockgesture"
	"github.com/relabs-tech/balance-core/internal/motor"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/pidcore"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/sampler"
	"github.com/relabs-tech/balance-core/internal/setpoint"
	"github.com/relabs-tech/balance-core/internal/supervisor"
)

// Loop owns every stateful component of one board's control loop.
type Loop struct {
	d      *config.Derived
	host   ports.Host
	motor  motor.Controller
	imuSrc imu.IMU
	sample *sampler.Sampler

	director *setpoint.Director
	nose     *setpoint.NoseBias
	atr      *setpoint.ATR
	turn     *setpoint.TurnTilt
	pid      *pidcore.Core
	act      *actuator.Actuator

	det  *faults.Detector
	lock *lockgesture.Recognizer
	sup  *supervisor.Supervisor

	// Last is the most recent tick's telemetry, exposed for the debug
	// dashboard and telemetry publisher (spec.md §6.5/§6.7).
	Last Telemetry
}

// Telemetry is a snapshot of the previous tick, for anything downstream
// that just wants to read state rather than drive the loop.
type Telemetry struct {
	State        supervisor.State
	Setpoint     float64
	Pitch        float64
	Current      float64
	NoseBias     float64
	ATRTarget    float64
	TurnTarget   float64
	Locked       bool
}

// New builds a Loop bound to the given ports.
func New(d *config.Derived, host ports.Host, imuSrc imu.IMU, motorSrc motor.Controller, padSrc pad.Reader, invertDirection bool) *Loop {
	s := sampler.New(imuSrc, motorSrc, padSrc, invertDirection, d.FaultADC1, d.FaultADC2, d.FaultADCHalfERPM)

	director := setpoint.New(d, host, d.SoftStart, 50000)
	nose := setpoint.NewNoseBias(d)
	atr := setpoint.NewATR(d, d.TorquetiltCurrentFilterFc, d.CutbackMinSpeed)
	turn := setpoint.NewTurnTilt(d, d.RollAggregateThreshold, d.TurntiltBoostPerERPM)
	pid := pidcore.New(d, host, d.SoftStart)
	act := actuator.New(motorSrc, d)

	det := faults.New(d, 50000)
	lock := lockgesture.New(d.FaultADC1, d.FaultADC2, 50, host, d.PermitLockPersistence, d.IsLockedDefault)
	sup := supervisor.New(d, host, det, lock)

	return &Loop{
		d:        d,
		host:     host,
		motor:    motorSrc,
		imuSrc:   imuSrc,
		sample:   s,
		director: director,
		nose:     nose,
		atr:      atr,
		turn:     turn,
		pid:      pid,
		act:      act,
		det:      det,
		lock:     lock,
		sup:      sup,
	}
}

// State reports the current ride/fault state.
func (l *Loop) State() supervisor.State {
	return l.sup.State()
}

// Locked reports whether the foot-pad lock gesture is currently engaged.
func (l *Loop) Locked() bool {
	return l.lock.Locked
}

// Tick advances the loop by exactly one sample period.
func (l *Loop) Tick() error {
	smp, err := l.sample.Sample()
	if err != nil {
		return fmt.Errorf("boardloop: sample: %w", err)
	}

	mcfg, err := l.motor.Configuration()
	if err != nil {
		return fmt.Errorf("boardloop: motor configuration: %w", err)
	}
	l.pid.Resolve(mcfg.CurrentMax)

	supIn := supervisor.Input{
		Pitch:             smp.Pitch,
		Roll:              smp.Roll,
		Switch:            smp.Switch,
		AbsDutyCycle:      abs(smp.DutyNow),
		AbsERPM:           smp.AbsERPM,
		Voltage:           smp.Voltage,
		Mode:              l.director.Mode,
		ReverseStopActive: l.director.Mode == setpoint.ReverseStop,
		ReverseTotalERPM:  l.director.ReverseTotalERPM(),
		MotorIsDefault:    mcfg.IsDefault,
		IMUStartupDone:    l.imuSrc.StartupDone(),
		Pad1:              smp.Pad1Volts,
		Pad2:              smp.Pad2Volts,
	}

	out := l.sup.Update(supIn, func(pitch float64) {
		l.sample.Reset()
		l.director.Reset(pitch)
		l.pid.Reset(pitch)
		l.nose.Reset()
		l.atr.Reset()
		l.turn.Reset()
		l.act.Reset()
		l.act.ArmStartupClicks()
	})

	l.Last = Telemetry{State: out.State, Pitch: smp.Pitch, Locked: l.lock.Locked}

	switch {
	case out.ShouldBrake:
		return l.act.Brake(smp.AbsERPM)
	case out.ShouldRun:
		return l.runPID(smp, mcfg, out.State)
	default:
		return nil
	}
}

func (l *Loop) runPID(smp sampler.Sample, mcfg motor.Config, state supervisor.State) error {
	d := l.d

	dirIn := setpoint.Input{
		Voltage:        smp.Voltage,
		FetTemp:        smp.FetTemp,
		FetTempLimit:   mcfg.FetTempStart - 2, // mc_max_temp_fet, app_balance.c:501
		AbsDutyCycle:   abs(smp.DutyNow),
		ERPM:           smp.ERPM,
		Pitch:          smp.Pitch,
		UseReverseStop: d.ReverseStopEnabled,
	}
	target := l.director.Update(dirIn)

	setpointTotal := target
	noseBias := l.nose.Interpolated()
	atrBias := l.atr.Interpolated
	turnBias := l.turn.Interpolated

	if l.director.Mode >= setpoint.TiltbackNone {
		noseBias = l.nose.Apply(smp.ERPM, l.atr.Interpolated)

		atrBias = l.atr.Apply(setpoint.ATRInput{
			MotorCurrent: smp.MotorCurrent,
			ERPM:         smp.ERPM,
			AbsERPM:      smp.AbsERPM,
			Acceleration: smp.Acceleration,
			Pitch:        smp.Pitch,
			Setpoint:     setpointTotal,
			Proportional: setpointTotal - smp.Pitch,
			PIDValue:     l.pid.LastCurrent(),
			Cutback:      l.turn.Cutback(),
		})

		turnBias = l.turn.Apply(setpoint.TurnTiltInput{
			AbsERPM:          smp.AbsERPM,
			ERPM:             smp.ERPM,
			YawChange:        smp.YawChange,
			YawAggregate:     smp.YawAggregate,
			Roll:             smp.Roll,
			RollAggregate:    smp.RollAggregate,
			Pitch:            smp.Pitch,
			NoseBias:         noseBias,
			Running:          state == supervisor.Running,
			CutbackEnable:    d.CutbackEnable,
			TorquetiltTarget: l.atr.Target,
		})
	}

	setpointTotal = target + noseBias + atrBias + turnBias

	res := l.pid.Update(pidcore.Input{
		Setpoint:               setpointTotal,
		Pitch:                  smp.Pitch,
		ERPM:                   smp.ERPM,
		AbsERPM:                smp.AbsERPM,
		TorquetiltInterpolated: atrBias,
		Mode:                   l.director.Mode,
	}, mcfg.CurrentMin, mcfg.CurrentMax)

	l.Last.Setpoint = setpointTotal
	l.Last.Current = res.Current
	l.Last.NoseBias = noseBias
	l.Last.ATRTarget = l.atr.Target
	l.Last.TurnTarget = l.turn.Target

	return l.act.Drive(res.Current)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
