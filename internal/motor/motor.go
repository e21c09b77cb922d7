// Package motor defines the motor controller capability set the balance
// core depends on (spec.md §6.1) and a fake used by tests and the bench
// tool. The wire-level adapter lives in internal/motor/serialvesc.
package motor

// Config is the motor controller's reported configuration, repurposed and
// read once per tick where needed (spec.md §6.1/§6.4).
type Config struct {
	CurrentMin        float64
	CurrentMax        float64
	InvertDirection    bool
	IsDefault          bool // factory-default detection, gates STARTUP->FAULT_STARTUP
	FetTempStart       float64
	SwitchingFrequency float64
	AuxOutputMode      int
}

// Telemetry is a single tick's worth of motor-side readings (spec.md §4.1).
type Telemetry struct {
	ERPM                     float64 // signed
	DutyNow                  float64
	TotalCurrentDirectional  float64 // direction-filtered total motor current
	SmoothERPM               float64
	FetTempFiltered          float64
	BatteryVoltage           float64
}

// Controller is the capability set exposed by the motor controller
// (spec.md §6.1). All methods are expected to be non-blocking.
type Controller interface {
	Telemetry() (Telemetry, error)
	Configuration() (Config, error)
	SetCurrent(amps float64) error
	SetBrakeCurrent(amps float64) error
	SetCurrentOffDelay(seconds float64) error
	ChangeSwitchingFrequency(hz float64) error
}
