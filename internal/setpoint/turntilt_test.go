package setpoint

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
)

func testDerivedForTurnTilt() *config.Derived {
	return &config.Derived{
		TurntiltStartAngle:   2,
		TurntiltStrength:     10,
		TurntiltERPMBoostEnd: 5000,
		TurntiltERPMBoost:    50,
		TurntiltAngleLimit:   10,
		TurntiltStartERPM:    250,
		TurntiltStepSize:     0.05,
		YawAggregateTarget:   150,
	}
}

func TestTurnTiltZeroBelowStartAngle(t *testing.T) {
	d := testDerivedForTurnTilt()
	tt := NewTurnTilt(d, 20, 0.0001)
	out := tt.Apply(TurnTiltInput{AbsERPM: 3000, ERPM: 3000, YawChange: 0.001, Running: true})
	if out != 0 {
		t.Fatalf("expected zero turn tilt below start angle, got %f", out)
	}
}

func TestTurnTiltRampsWithYawChange(t *testing.T) {
	d := testDerivedForTurnTilt()
	tt := NewTurnTilt(d, 20, 0.0001)
	var out float64
	for i := 0; i < 50; i++ {
		out = tt.Apply(TurnTiltInput{AbsERPM: 3000, ERPM: 3000, YawChange: 0.1, YawAggregate: 0, Running: true})
	}
	if out <= 0 {
		t.Fatalf("expected positive turn tilt bias while sustaining a turn, got %f", out)
	}
}

func TestTurnTiltSuppressedOutsideRunning(t *testing.T) {
	d := testDerivedForTurnTilt()
	tt := NewTurnTilt(d, 20, 0.0001)
	out := tt.Apply(TurnTiltInput{AbsERPM: 3000, ERPM: 3000, YawChange: 0.1, Running: false})
	if out != 0 {
		t.Fatalf("expected zero turn tilt outside RUNNING, got %f", out)
	}
}
