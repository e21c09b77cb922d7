package pad

import "sync"

// Mock is a Reader used by tests and the bench tool.
type Mock struct {
	mu         sync.Mutex
	Pad1, Pad2 float64
	Err        error
}

func (m *Mock) Set(pad1, pad2 float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pad1, m.Pad2 = pad1, pad2
}

func (m *Mock) ReadVolts() (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Pad1, m.Pad2, m.Err
}
