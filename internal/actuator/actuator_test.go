package actuator

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/motor"
)

func testDerived() *config.Derived {
	return &config.Derived{
		MotorTimeout:          0.02,
		BrakeCurrent:          5,
		BrakeTimeoutTicks:     10,
		ClickCurrent:          20,
		StartCounterClicksMax: 2,
	}
}

func TestDriveRefreshesCurrentOffDelayEveryTick(t *testing.T) {
	m := motor.NewMock()
	a := New(m, testDerived())
	if err := a.Drive(3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.LastOffDelay != 0.02 {
		t.Fatalf("expected off-delay refreshed to 0.02, got %f", m.LastOffDelay)
	}
	if m.LastCurrent != 3 {
		t.Fatalf("expected plain current with no clicks pending, got %f", m.LastCurrent)
	}
}

func TestArmStartupClicksModulatesCurrent(t *testing.T) {
	m := motor.NewMock()
	a := New(m, testDerived())
	a.ArmStartupClicks()

	// clicksRemaining: 2 -> 1 -> 0, modulation flips at the last (0) and the
	// one two clicks before it (2), per app_balance.c:2077-2083.
	a.Drive(10) // clicksRemaining becomes 1, at invocation time it was 2 -> +click
	if m.LastCurrent != 10+20 {
		t.Fatalf("expected boosted click current on the first click, got %f", m.LastCurrent)
	}
	a.Drive(10) // clicksRemaining becomes 0 -> -click
	if m.LastCurrent != 10-20 {
		t.Fatalf("expected negative click current on the final click, got %f", m.LastCurrent)
	}
	a.Drive(10) // no clicks left
	if m.LastCurrent != 10 {
		t.Fatalf("expected unmodulated current once clicks are exhausted, got %f", m.LastCurrent)
	}
}

func TestBrakeStopsReassertingAfterTimeoutExpires(t *testing.T) {
	m := motor.NewMock()
	a := New(m, testDerived())

	for i := 0; i < 10; i++ {
		if err := a.Brake(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	callsBeforeExpiry := m.BrakeCalls
	if callsBeforeExpiry == 0 {
		t.Fatalf("expected brake current to be asserted before the timeout expires")
	}

	// a few more ticks at rest should stop reasserting
	for i := 0; i < 5; i++ {
		a.Brake(0)
	}
	if m.BrakeCalls != callsBeforeExpiry {
		t.Fatalf("expected brake current to stop being reasserted once the timeout expired, calls grew from %d to %d", callsBeforeExpiry, m.BrakeCalls)
	}

	// erpm moving again rearms the timeout
	a.Brake(5)
	if m.BrakeCalls != callsBeforeExpiry+1 {
		t.Fatalf("expected the brake timeout to rearm once erpm exceeds 1")
	}
}

func TestBrakeAlwaysAssertsWhenTimeoutDisabled(t *testing.T) {
	m := motor.NewMock()
	d := testDerived()
	d.BrakeTimeoutTicks = 0
	a := New(m, d)

	for i := 0; i < 50; i++ {
		if err := a.Brake(0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m.BrakeCalls != 50 {
		t.Fatalf("expected brake current asserted every tick with the timeout disabled, got %d calls", m.BrakeCalls)
	}
}
