package motor

import "sync"

// Mock is a Controller used by tests and the bench tool (internal/motor
// has no production stand-in for a real VESC; see
// internal/motor/serialvesc for the wire adapter).
type Mock struct {
	mu sync.Mutex

	Telem  Telemetry
	Cfg    Config
	TelemErr error
	CfgErr   error

	LastCurrent      float64
	LastBrakeCurrent float64
	LastOffDelay     float64
	LastSwitchFreq   float64
	SetCurrentCalls  int
	BrakeCalls       int
}

func NewMock() *Mock {
	return &Mock{
		Cfg: Config{
			CurrentMin:   -60,
			CurrentMax:   60,
			FetTempStart: 80,
		},
	}
}

func (m *Mock) Telemetry() (Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Telem, m.TelemErr
}

func (m *Mock) Configuration() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cfg, m.CfgErr
}

func (m *Mock) SetCurrent(amps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastCurrent = amps
	m.SetCurrentCalls++
	return nil
}

func (m *Mock) SetBrakeCurrent(amps float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastBrakeCurrent = amps
	m.BrakeCalls++
	return nil
}

func (m *Mock) SetCurrentOffDelay(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastOffDelay = seconds
	return nil
}

func (m *Mock) ChangeSwitchingFrequency(hz float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSwitchFreq = hz
	return nil
}
