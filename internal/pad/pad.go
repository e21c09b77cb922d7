// Package pad defines the foot-pad ADC capability set (spec.md §6.3) and
// the switch-state decode it feeds into the inputs sampler (spec.md §4.1
// step 7).
package pad

// Reader reads the two foot-pad ADC channels, pre-scaled to volts by the
// board's reference voltage (spec.md §6.3's V_REG).
type Reader interface {
	ReadVolts() (pad1, pad2 float64, err error)
}

// SwitchState is the decoded rider-on-board signal.
type SwitchState int

const (
	Off SwitchState = iota
	Half
	On
)

func (s SwitchState) String() string {
	switch s {
	case Off:
		return "OFF"
	case Half:
		return "HALF"
	default:
		return "ON"
	}
}

// Decode implements spec.md §4.1 step 7: a threshold of 0 disables that
// pad entirely (no-switch configuration always reads ON); with one pad
// configured the switch is binary ON/OFF; with both configured it can
// report the intermediate HALF state.
func Decode(pad1, pad2, threshold1, threshold2 float64) SwitchState {
	pad1Enabled := threshold1 > 0
	pad2Enabled := threshold2 > 0

	switch {
	case !pad1Enabled && !pad2Enabled:
		return On
	case pad1Enabled && !pad2Enabled:
		if pad1 > threshold1 {
			return On
		}
		return Off
	case !pad1Enabled && pad2Enabled:
		if pad2 > threshold2 {
			return On
		}
		return Off
	default:
		on1 := pad1 > threshold1
		on2 := pad2 > threshold2
		switch {
		case on1 && on2:
			return On
		case on1 || on2:
			return Half
		default:
			return Off
		}
	}
}
