package boardloop

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/imu"
	"github.com/relabs-tech/balance-core/internal/motor"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/supervisor"
)

func testConfig() *config.Derived {
	cfg := &config.Config{Raw: config.Raw{
		Hertz:                 1000,
		StartupPitchTolerance: 10,
		StartupRollTolerance:  45,
		StartupSpeed:          50,

		FaultPitch:           37,
		FaultRoll:            75,
		FaultDuty:            0.9,
		FaultDelayPitch:      50,
		FaultDelayRoll:       50,
		FaultDelaySwitchHalf: 500,
		FaultDelaySwitchFull: 100,
		FaultDelayDuty:       50,
		FaultADC1:            1,
		FaultADC2:            1,
		FaultADCHalfERPM:     6000,

		TiltbackDuty:        0.9,
		TiltbackDutyAngle:   12,
		TiltbackDutySpeed:   7,
		TiltbackHV:          67,
		TiltbackHVAngle:     14,
		TiltbackHVSpeed:     7,
		TiltbackLV:          40,
		TiltbackLVAngle:     14,
		TiltbackLVSpeed:     7,
		TiltbackReturnSpeed: 3,

		TiltbackVariable:        4,
		TiltbackVariableMax:     10,
		TiltbackVariableMaxERPM: 4000,
		TiltbackConstant:        2,
		TiltbackConstantERPM:    700,
		NoseAnglingSpeed:        3,

		TorquetiltStrength:    0.1,
		TorquetiltFilter:      3,
		TorquetiltAngleLimit:  6,
		TorquetiltStartCurrent: 4,
		TorquetiltOnSpeed:     4,
		TorquetiltOffSpeed:    3,

		TurntiltStrength:     0.3,
		TurntiltERPMBoost:    50,
		TurntiltERPMBoostEnd: 5000,
		TurntiltAngleLimit:   4,
		TurntiltStartAngle:   0.1,
		TurntiltStartERPM:    250,
		TurntiltSpeed:        4,

		KP:             19,
		KI:             0.003,
		KD:             360,
		KdPT1Frequency: 10,

		BrakeCurrent:      8,
		BrakeTimeout:      5,
		InactivityTimeout: config.InactivityTimeoutDisabled,

		YawKI: 500,
		YawKD: 8,

		KdPT1HighpassFrequency: 10,
	}}
	cfg.Derive()
	return &cfg.Derived
}

func newTestLoop() (*Loop, *motor.Mock, *imu.Mock, *pad.Mock) {
	d := testConfig()
	host := ports.NewMock()
	imuSrc := imu.NewMock()
	motorSrc := motor.NewMock()
	padSrc := &pad.Mock{}
	l := New(d, host, imuSrc, motorSrc, padSrc, false)
	return l, motorSrc, imuSrc, padSrc
}

func TestTickBrakesWhileIMUStartupPending(t *testing.T) {
	l, motorSrc, imuSrc, _ := newTestLoop()
	imuSrc.SetStartupDone(false)

	if err := l.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if l.State() != supervisor.Startup {
		t.Fatalf("expected STARTUP while the IMU has not settled, got %v", l.State())
	}
	if motorSrc.BrakeCalls == 0 {
		t.Fatalf("expected the actuator to hold the brake while IMU startup is pending")
	}
}

func TestTickReachesRunningAndDrivesCurrent(t *testing.T) {
	l, motorSrc, _, padSrc := newTestLoop()
	padSrc.Set(5, 5) // both pads well above threshold -> switch ON

	if err := l.Tick(); err != nil { // STARTUP -> FAULT_STARTUP
		t.Fatalf("Tick: %v", err)
	}
	if l.State() != supervisor.FaultStartup {
		t.Fatalf("expected FAULT_STARTUP after a configured motor is first seen, got %v", l.State())
	}

	if err := l.Tick(); err != nil { // FAULT_STARTUP -> RUNNING
		t.Fatalf("Tick: %v", err)
	}
	if l.State() != supervisor.Running {
		t.Fatalf("expected RUNNING once pitch/roll/switch settle, got %v", l.State())
	}

	motorSrc.SetCurrentCalls = 0
	if err := l.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if motorSrc.SetCurrentCalls == 0 {
		t.Fatalf("expected the actuator to drive a requested current while RUNNING")
	}
}

func TestTickStaysInStartupWithDefaultMotorConfig(t *testing.T) {
	l, motorSrc, _, _ := newTestLoop()
	motorSrc.Cfg.IsDefault = true

	if err := l.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if l.State() != supervisor.Startup {
		t.Fatalf("expected to stay in STARTUP with an unconfigured motor, got %v", l.State())
	}
}
