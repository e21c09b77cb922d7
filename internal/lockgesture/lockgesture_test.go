package lockgesture

import (
	"testing"

	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
)

// driveStep feeds the same input for 101 ticks: the first Update may apply
// a transition, the next 50 fall inside the debounce window and are
// ignored, and the remaining ones may apply a further transition if the
// same input also satisfies the next step.
func driveStep(r *Recognizer, sw pad.SwitchState, adc1, adc2 float64) bool {
	flipped := r.Update(sw, adc1, adc2)
	for i := 0; i < 100; i++ {
		if r.Update(sw, adc1, adc2) {
			flipped = true
		}
	}
	return flipped
}

func TestFullGestureTogglesLock(t *testing.T) {
	host := ports.NewMock()
	r := New(2, 2, 50, host, true, false)

	driveStep(r, pad.On, 0, 0)  // -1 -> 0
	driveStep(r, pad.Off, 0, 0) // 0 -> 1
	driveStep(r, pad.Half, 3, 0) // 1 -> 2 (adc1 trip)
	driveStep(r, pad.Off, 0, 0)  // 2 -> 3 (switch off, adc clear)
	driveStep(r, pad.Half, 0, 3) // 3 -> 4 (adc2 trip)
	driveStep(r, pad.Off, 0, 0)  // 4 -> 5 (switch off, adc clear)
	driveStep(r, pad.Half, 3, 0) // 5 -> 6 (adc1 trip)
	driveStep(r, pad.Off, 0, 0)  // 6 -> 7 (switch off, adc clear)
	flipped := driveStep(r, pad.Half, 0, 3) // 7 -> 8 -> flips

	if !flipped {
		t.Fatalf("expected gesture to complete and flip the lock flag")
	}
	if !r.Locked {
		t.Fatalf("expected lock to be engaged after the gesture")
	}
	if len(host.LockPersists) == 0 {
		t.Fatalf("expected lock state to be persisted")
	}
}

func TestPrematureSwitchOnResetsGesture(t *testing.T) {
	host := ports.NewMock()
	r := New(2, 2, 50, host, true, false)
	driveStep(r, pad.On, 0, 0)
	driveStep(r, pad.Off, 0, 0)
	driveStep(r, pad.Half, 3, 0) // -> step 2

	// a single switch-ON tick while in step 2 aborts back to idle
	r.Update(pad.On, 0, 0)
	if r.step != -1 {
		t.Fatalf("expected gesture to abort to idle, got step %d", r.step)
	}
}
