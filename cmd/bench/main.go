// bench runs the control loop against mock ports, with the IMU sample
// following imu.Oscillating's fixed sinusoid, so the whole director/shaper/
// PID/actuator chain can be exercised and logged without real hardware.
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance-core/internal/boardloop"
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/imu"
	"github.com/relabs-tech/balance-core/internal/motor"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports"
)

func main() {
	configPath := flag.String("config", "./board_config.txt", "path to configuration file")
	ticks := flag.Int("ticks", 2000, "number of ticks to run")
	amplitude := flag.Float64("amplitude", 3, "oscillation amplitude in degrees")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	d := &config.Get().Derived

	host := ports.NewMock()
	imuSrc := imu.NewMock()
	motorSrc := motor.NewMock()
	padSrc := &pad.Mock{}
	padSrc.Set(5, 5)

	loop := boardloop.New(d, host, imuSrc, motorSrc, padSrc, false)

	hz := float64(d.Hertz)
	lastState := loop.State()
	for i := 0; i < *ticks; i++ {
		imuSrc.Set(imu.Oscillating(i, hz, *amplitude))

		if err := loop.Tick(); err != nil {
			log.Fatalf("tick %d: %v", i, err)
		}

		if loop.State() != lastState {
			log.Printf("tick %5d: %s -> %s", i, lastState, loop.State())
			lastState = loop.State()
		}
	}

	last := loop.Last
	log.Printf("bench done: %d ticks at %.0fHz, final state=%s pitch=%.2f setpoint=%.2f current=%.2f",
		*ticks, hz, last.State, last.Pitch, last.Setpoint, last.Current)
}
