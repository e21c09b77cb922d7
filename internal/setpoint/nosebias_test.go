package setpoint

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
)

func TestNoseBiasRampsTowardConstantAboveThreshold(t *testing.T) {
	d := &config.Derived{
		TiltbackVariable:        0.001,
		TiltbackVariableMax:     5,
		TiltbackVariableMaxERPM: 8000,
		TiltbackConstant:        2,
		TiltbackConstantERPM:    3000,
		NoseAnglingStepSize:     0.01,
	}
	n := NewNoseBias(d)
	var out float64
	for i := 0; i < 1000; i++ {
		out = n.Apply(4000, 0)
	}
	if out <= 2 {
		t.Fatalf("expected bias above the constant tiltback floor, got %f", out)
	}
}

func TestNoseBiasSuppressedDuringDownhillTorqueTilt(t *testing.T) {
	d := &config.Derived{
		TiltbackVariable:        0.001,
		TiltbackVariableMaxERPM: 8000,
		NoseAnglingStepSize:     1,
	}
	n := NewNoseBias(d)
	out := n.Apply(4000, -2)
	if out != 0 {
		t.Fatalf("expected zero nose bias while torquetilt is downhill, got %f", out)
	}
}
