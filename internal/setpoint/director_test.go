package setpoint

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/ports"
)

func testDerivedForDirector() *config.Derived {
	return &config.Derived{
		Hertz:                 1000,
		StartupStepSize:       0.005,
		TiltbackDuty:          0.8,
		TiltbackDutyAngle:     12,
		TiltbackDutyStepSize:  0.003,
		TiltbackHV:            58,
		TiltbackHVAngle:       10,
		TiltbackHVStepSize:    0.003,
		TiltbackLV:            42,
		TiltbackLVAngle:       10,
		TiltbackLVStepSize:    0.003,
		TiltbackReturnStepSize: 0.002,
		ReverseStopStepSize:    0.1,
	}
}

func TestDirectorCentersThenReturnsToTiltbackNone(t *testing.T) {
	d := testDerivedForDirector()
	dir := New(d, ports.NewMock(), false, 50000)
	dir.Reset(2)

	if dir.Mode != Centering {
		t.Fatalf("expected Centering after reset, got %v", dir.Mode)
	}
	// soft start disabled: director should leave centering immediately once
	// interpolated has caught up to target (it starts at pitch/2 = 1 and
	// slews down to a target of 0).
	for i := 0; i < 2000; i++ {
		dir.Update(Input{Voltage: 50, ERPM: 0})
		if dir.Mode == TiltbackNone {
			break
		}
	}
	if dir.Mode != TiltbackNone {
		t.Fatalf("expected director to leave centering, stuck in %v", dir.Mode)
	}
}

func TestDirectorTiltbackDutyTakesPriorityOverVoltage(t *testing.T) {
	d := testDerivedForDirector()
	dir := New(d, ports.NewMock(), false, 50000)
	dir.Reset(0)
	dir.Mode = TiltbackNone

	dir.Update(Input{Voltage: 50, AbsDutyCycle: 0.95, ERPM: 1000})
	if dir.Mode != TiltbackDuty {
		t.Fatalf("expected TiltbackDuty, got %v", dir.Mode)
	}
}

func TestDirectorLowVoltageTiltback(t *testing.T) {
	d := testDerivedForDirector()
	dir := New(d, ports.NewMock(), false, 50000)
	dir.Reset(0)
	dir.Mode = TiltbackNone

	dir.Update(Input{Voltage: 40, ERPM: 1000})
	if dir.Mode != TiltbackLV {
		t.Fatalf("expected TiltbackLV, got %v", dir.Mode)
	}
}

func TestDirectorReverseStopExitsAtForwardERPM(t *testing.T) {
	d := testDerivedForDirector()
	dir := New(d, ports.NewMock(), false, 50000)
	dir.Reset(0)
	dir.Mode = ReverseStop
	dir.reverseTotalERPM = 0

	dir.Update(Input{Voltage: 50, ERPM: 100})
	if dir.Mode != TiltbackNone {
		t.Fatalf("expected ReverseStop to clear on forward erpm, got %v", dir.Mode)
	}
}
