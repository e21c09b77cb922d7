package ports

import (
	"fmt"
	"sync"
)

// Mock records every call for test assertions.
type Mock struct {
	mu sync.Mutex

	BeepOnCalls    int
	BeepOffCalls   int
	AlertCalls     []AlertCall
	Lights         map[Light]bool
	LockPersists   []bool
	Logs           []string
}

type AlertCall struct {
	Count int
	Long  bool
}

func NewMock() *Mock {
	return &Mock{Lights: map[Light]bool{}}
}

func (m *Mock) BeepOn(force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeepOnCalls++
}

func (m *Mock) BeepOff(force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeepOffCalls++
}

func (m *Mock) BeepAlert(count int, long bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlertCalls = append(m.AlertCalls, AlertCall{Count: count, Long: long})
}

func (m *Mock) SetLight(light Light, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lights[light] = on
}

func (m *Mock) PersistLock(locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockPersists = append(m.LockPersists, locked)
}

func (m *Mock) Log(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, fmt.Sprintf(format, args...))
}
