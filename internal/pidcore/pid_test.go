package pidcore

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/ports"
	"github.com/relabs-tech/balance-core/internal/setpoint"
)

func testDerived() *config.Derived {
	return &config.Derived{
		Hertz:                    1000,
		KPAcc:                    8,
		KIAcc:                    0.002,
		KDAcc:                    900,
		KdPT1Frequency:           10,
		CenterBoostAngle:         2,
		CenterBoostKPAdder:       2,
		CenterBoostIntensity:     0.5,
		CenterJerkDurationMS:     0,
		CenterJerkStrength:       0,
		AccelBoostThreshold:      8,
		AccelBoostThreshold2:     14,
		AccelBoostIntensity:      0.5,
		IntegralTTImpactDownhill: 0.85,
		IntegralTTImpactUphill:   0.9,
		MotorMinCurrentHeadroom:  3,
		MaxBrakeAmps:             20,
		MaxDerivative:            30,
	}
}

func TestPIDLevelBoardProducesNoCurrent(t *testing.T) {
	d := testDerived()
	c := New(d, ports.NewMock(), false)
	c.Reset(0)
	var out Result
	for i := 0; i < 2000; i++ {
		out = c.Update(Input{Setpoint: 0, Pitch: 0, Mode: setpoint.TiltbackNone}, -60, 60)
	}
	if abs(out.Current) > 0.5 {
		t.Fatalf("expected near-zero current on a level board, got %f", out.Current)
	}
}

func TestPIDRespondsToForwardLean(t *testing.T) {
	d := testDerived()
	c := New(d, ports.NewMock(), false)
	c.Reset(0)
	var out Result
	for i := 0; i < 50; i++ {
		out = c.Update(Input{Setpoint: 0, Pitch: 5, Mode: setpoint.TiltbackNone}, -60, 60)
	}
	if out.Current >= 0 {
		t.Fatalf("expected negative (corrective) current for a forward lean, got %f", out.Current)
	}
}

func TestPIDClampsToCurrentRangeWithHeadroom(t *testing.T) {
	d := testDerived()
	c := New(d, ports.NewMock(), false)
	c.Reset(0)
	var out Result
	for i := 0; i < 500; i++ {
		out = c.Update(Input{Setpoint: 0, Pitch: 40, Mode: setpoint.TiltbackNone}, -10, 10)
	}
	if out.Current < -10 || out.Current > 10-3+0.01 {
		t.Fatalf("expected current clamped within headroom, got %f", out.Current)
	}
	if !out.CurrentLimiting {
		t.Fatalf("expected current limiting to be reported")
	}
}

func TestResolveFillsSentinelZeroBrakeLimits(t *testing.T) {
	d := testDerived()
	d.MaxBrakeAmps = 0
	d.MaxDerivative = 0
	c := New(d, ports.NewMock(), false)
	c.Resolve(40)
	if c.maxBrakeAmps != 20 || c.maxDerivative != 20 {
		t.Fatalf("expected sentinel zero resolved against half of motor max current, got %f/%f", c.maxBrakeAmps, c.maxDerivative)
	}
}
