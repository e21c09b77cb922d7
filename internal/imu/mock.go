package imu

import (
	"math"
	"sync"
)

// Mock is a deterministic IMU used by tests and the bench tool, adapted
// from the mock orientation source's fixed-oscillation pattern
// (_examples/relabs-tech-inertial_computer/internal/orientation/mock_source.go).
type Mock struct {
	mu sync.Mutex

	Sample      Sample
	startupDone bool
	tick        int
}

func NewMock() *Mock {
	return &Mock{startupDone: true}
}

// SetStartupDone lets tests simulate the IMU's startup sequence.
func (m *Mock) SetStartupDone(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupDone = v
}

// Set overwrites the sample the next Read() call will return.
func (m *Mock) Set(s Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sample = s
}

func (m *Mock) Read() (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick++
	return m.Sample, nil
}

func (m *Mock) StartupDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startupDone
}

// Oscillating returns a Sample following a gentle sinusoid, useful for the
// bench tool's free-run demo mode.
func Oscillating(tick int, hz float64, amplitudeDeg float64) Sample {
	t := float64(tick) / hz
	return Sample{
		Pitch: amplitudeDeg * math.Sin(2*math.Pi*0.2*t),
		Roll:  amplitudeDeg * 0.3 * math.Sin(2*math.Pi*0.13*t),
		Yaw:   0,
	}
}
