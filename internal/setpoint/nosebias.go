package setpoint

import "github.com/relabs-tech/balance-core/internal/config"

// NoseBias shapes the nose-angle bias that trims the setpoint toward the
// direction of travel at speed and toward a fixed lean above a constant
// erpm threshold, grounded on apply_noseangling().
type NoseBias struct {
	d            *config.Derived
	interpolated float64
}

func NewNoseBias(derived *config.Derived) *NoseBias {
	return &NoseBias{d: derived}
}

func (n *NoseBias) Reset() {
	n.interpolated = 0
}

// Interpolated returns the bias computed by the previous Apply call.
func (n *NoseBias) Interpolated() float64 {
	return n.interpolated
}

// Apply returns the bias to add to the setpoint this tick. torquetiltInterpolated
// is read to suppress the bias while torque-tilt is already fighting a
// downhill/uphill slope (app_balance.c's torquetilt_interpolated guard).
func (n *NoseBias) Apply(erpm, torquetiltInterpolated float64) float64 {
	d := n.d

	var target float64
	switch {
	case erpm > 0 && torquetiltInterpolated < -1:
		target = 0
	case erpm < 0 && torquetiltInterpolated > 1:
		target = 0
	case abs(erpm) > d.TiltbackVariableMaxERPM:
		target = abs(d.TiltbackVariableMax) * sign(erpm)
	default:
		target = d.TiltbackVariable * erpm
	}

	switch {
	case erpm > d.TiltbackConstantERPM:
		target += d.TiltbackConstant
	case erpm < -d.TiltbackConstantERPM:
		target += -d.TiltbackConstant
	}

	step := d.NoseAnglingStepSize
	diff := target - n.interpolated
	switch {
	case abs(diff) < step:
		n.interpolated = target
	case diff > 0:
		n.interpolated += step
	default:
		n.interpolated -= step
	}
	return n.interpolated
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
