// Package periphio implements ports.Host over periph.io GPIO pins,
// adapted from the chip-select bring-up idiom in
// _examples/relabs-tech-inertial_computer/internal/orientation/imu_source.go
// (periph host.Init + gpioreg.ByName), generalized from an SPI
// chip-select pin to the buzzer and the two status-light output pins.
package periphio

import (
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance-core/internal/ports"
)

// GPIOHost drives the buzzer and status lights over digital GPIO outputs.
// Lock persistence and log lines go to the standard logger, the same
// sink every file in the teacher repo uses.
type GPIOHost struct {
	mu sync.Mutex

	buzzer       gpio.PinOut
	brakeLight   gpio.PinOut
	forwardLight gpio.PinOut

	persistLock func(bool)
}

// NewGPIOHost opens the named GPIO pins. persistLock is the external
// flash-persistence callback (spec.md §6.4's commands_balance_lock); pass
// nil to drop writes (e.g. when persistence is not permitted, spec.md
// §6.4's nrf_conf.channel==99 gate, enforced by the caller).
func NewGPIOHost(buzzerPin, brakeLightPin, forwardLightPin string, persistLock func(bool)) (*GPIOHost, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("ports: periph host init: %w", err)
	}

	buzzer := gpioreg.ByName(buzzerPin)
	if buzzer == nil {
		return nil, fmt.Errorf("ports: buzzer pin %q not found", buzzerPin)
	}
	brake := gpioreg.ByName(brakeLightPin)
	if brake == nil {
		return nil, fmt.Errorf("ports: brake light pin %q not found", brakeLightPin)
	}
	fwd := gpioreg.ByName(forwardLightPin)
	if fwd == nil {
		return nil, fmt.Errorf("ports: forward light pin %q not found", forwardLightPin)
	}

	return &GPIOHost{
		buzzer:       buzzer,
		brakeLight:   brake,
		forwardLight: fwd,
		persistLock:  persistLock,
	}, nil
}

func (h *GPIOHost) BeepOn(force bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.buzzer.Out(gpio.High); err != nil {
		log.Printf("ports: buzzer on: %v", err)
	}
}

func (h *GPIOHost) BeepOff(force bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.buzzer.Out(gpio.Low); err != nil {
		log.Printf("ports: buzzer off: %v", err)
	}
}

// BeepAlert emits count short pulses, or one long pulse. It blocks for the
// pulse duration, matching the teacher's use of short blocking sleeps only
// during non-tick sequences (spec.md §5's suspension-points rule — this is
// only ever invoked from STARTUP/FAULT handling, never mid-tick).
func (h *GPIOHost) BeepAlert(count int, long bool) {
	pulse := 80 * time.Millisecond
	if long {
		pulse = 600 * time.Millisecond
		count = 1
	}
	for i := 0; i < count; i++ {
		h.BeepOn(true)
		time.Sleep(pulse)
		h.BeepOff(true)
		if i < count-1 {
			time.Sleep(pulse)
		}
	}
}

func (h *GPIOHost) SetLight(light ports.Light, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pin := h.brakeLight
	if light == ports.ForwardLight {
		pin = h.forwardLight
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := pin.Out(level); err != nil {
		log.Printf("ports: set light %v: %v", light, err)
	}
}

func (h *GPIOHost) PersistLock(locked bool) {
	if h.persistLock != nil {
		h.persistLock(locked)
	}
}

func (h *GPIOHost) Log(format string, args ...any) {
	log.Printf(format, args...)
}
