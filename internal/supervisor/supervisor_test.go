package supervisor

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/faults"
	"github.com/relabs-tech/balance-core/internal/lockgesture"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/setpoint"
)

func testDerived() *config.Derived {
	return &config.Derived{
		Hertz:                 1000,
		StartupPitchTolerance: 5,
		StartupRollTolerance:  5,
		TiltbackLV:            30,
		FaultPitch:            45,
		FaultRoll:             45,
		FaultDuty:             0.9,
		FaultDelayPitch:       10,
		FaultDelayRoll:        10,
		FaultDelaySwitchHalf:  20,
		FaultDelaySwitchFull:  20,
		FaultDelayDuty:        10,
		FaultADCHalfERPM:      2000,
		InactivityTimeout:     config.InactivityTimeoutDisabled,
	}
}

func newTestSupervisor(d *config.Derived) (*Supervisor, *ports.Mock) {
	host := ports.NewMock()
	det := faults.New(d, 50000)
	lock := lockgesture.New(2, 2, 50, host, true, false)
	return New(d, host, det, lock), host
}

func TestStartupWaitsForIMU(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	out := s.Update(Input{IMUStartupDone: false}, func(float64) {})
	if out.State != Startup || !out.ShouldBrake {
		t.Fatalf("expected to stay in STARTUP while IMU is not ready, got %v", out.State)
	}
}

func TestStartupRefusesDefaultMotorConfig(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	out := s.Update(Input{IMUStartupDone: true, MotorIsDefault: true}, func(float64) {})
	if out.State != Startup {
		t.Fatalf("expected to stay in STARTUP with an unconfigured motor, got %v", out.State)
	}
}

func TestStartupEntersFaultStartupOnceConfigured(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	resetCalled := false
	out := s.Update(Input{IMUStartupDone: true, MotorIsDefault: false, Voltage: 60}, func(float64) {
		resetCalled = true
	})
	if out.State != FaultStartup || !resetCalled || !out.JustReset {
		t.Fatalf("expected FAULT_STARTUP entry with a reset, got %v resetCalled=%v", out.State, resetCalled)
	}
}

func TestFaultStateReturnsToRunningOnValidStartupPosition(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = FaultStartup

	resetCalled := false
	out := s.Update(Input{Pitch: 1, Roll: 1, Switch: pad.On, Voltage: 60}, func(float64) {
		resetCalled = true
	})
	if out.State != Running || !resetCalled {
		t.Fatalf("expected re-entry to RUNNING, got %v resetCalled=%v", out.State, resetCalled)
	}
}

func TestFaultStateStaysPutWithSwitchOff(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = FaultAnglePitch

	out := s.Update(Input{Pitch: 1, Roll: 1, Switch: pad.Off, Voltage: 60}, func(float64) {
		t.Fatalf("should not reset with the switch off")
	})
	if out.State != FaultAnglePitch || !out.ShouldBrake {
		t.Fatalf("expected to stay in FAULT_ANGLE_PITCH, got %v", out.State)
	}
}

func TestRunningEntersFaultOnPitchExceeded(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = Running

	var out Output
	for i := 0; i < 15; i++ {
		out = s.Update(Input{Pitch: 50, Roll: 0, Switch: pad.On, Mode: setpoint.TiltbackNone}, func(float64) {})
	}
	if out.State != FaultAnglePitch || !out.ShouldBrake {
		t.Fatalf("expected FAULT_ANGLE_PITCH after debounce, got %v", out.State)
	}
}

func TestRunningReportsTiltbackSubstate(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = Running

	out := s.Update(Input{Pitch: 0, Roll: 0, Switch: pad.On, Mode: setpoint.TiltbackHV}, func(float64) {})
	if out.State != RunningTiltbackHV || !out.ShouldRun {
		t.Fatalf("expected RUNNING_TILTBACK_HIGH_VOLTAGE, got %v", out.State)
	}
}

func TestFaultDutyStaysStickyWhileDutyPredicateHolds(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = FaultDuty

	out := s.Update(Input{Pitch: 0, Roll: 0, Switch: pad.On, AbsDutyCycle: 0.95}, func(float64) {
		t.Fatalf("FAULT_DUTY must never call reset directly")
	})
	if out.State != FaultDuty {
		t.Fatalf("expected to remain in FAULT_DUTY, got %v", out.State)
	}
}

func TestFaultDutyYieldsToASharperFault(t *testing.T) {
	d := testDerived()
	s, _ := newTestSupervisor(d)
	s.state = FaultDuty

	out := s.Update(Input{Pitch: 0, Roll: 0, Switch: pad.Off, AbsDutyCycle: 0}, func(float64) {})
	if out.State != FaultSwitchFull {
		t.Fatalf("expected FAULT_DUTY to yield to FAULT_SWITCH_FULL once the switch opens, got %v", out.State)
	}
}
