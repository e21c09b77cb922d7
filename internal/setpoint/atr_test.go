package setpoint

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
)

func testDerivedForATR() *config.Derived {
	return &config.Derived{
		TorquetiltStrengthUphill: 1.0,
		AccelFactor:              5,
		AccelFactor2:             6.5,
		TorquetiltStartCurrent:   4,
		TorquetiltAngleLimit:     15,
		TorquetiltOnStepSize:     0.02,
		TorquetiltOffStepSize:    0.008,
		TTTBrakeRatio:            4,
	}
}

func TestATRDisabledWhenStrengthZero(t *testing.T) {
	d := testDerivedForATR()
	d.TorquetiltStrengthUphill = 0
	a := NewATR(d, 0.01, 2000)
	out := a.Apply(ATRInput{MotorCurrent: 40, ERPM: 3000, AbsERPM: 3000})
	if out != 0 {
		t.Fatalf("expected no torque tilt bias when strength is 0, got %f", out)
	}
}

func TestATRLiftsNoseUnderSustainedLoad(t *testing.T) {
	d := testDerivedForATR()
	a := NewATR(d, 0.05, 2000)
	var out float64
	for i := 0; i < 200; i++ {
		out = a.Apply(ATRInput{MotorCurrent: 30, ERPM: 3000, AbsERPM: 3000, Acceleration: 0.5})
	}
	if out <= 0 {
		t.Fatalf("expected positive torque tilt under sustained high current low acceleration, got %f", out)
	}
}

func TestATRResetClearsState(t *testing.T) {
	d := testDerivedForATR()
	a := NewATR(d, 0.05, 2000)
	for i := 0; i < 50; i++ {
		a.Apply(ATRInput{MotorCurrent: 30, ERPM: 3000, AbsERPM: 3000})
	}
	a.Reset()
	if a.Target != 0 || a.Interpolated != 0 || a.accelGap != 0 {
		t.Fatalf("expected Reset to clear accumulated state")
	}
}
