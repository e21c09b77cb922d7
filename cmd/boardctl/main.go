package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/balance-core/internal/boardloop"
	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/imu"
	"github.com/relabs-tech/balance-core/internal/motor/serialvesc"
	"github.com/relabs-tech/balance-core/internal/pad"
	"github.com/relabs-tech/balance-core/internal/ports/periphio"
	"github.com/relabs-tech/balance-core/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "./board_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting balance-core board control loop")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	d := &cfg.Derived

	host, err := periphio.NewGPIOHost(cfg.Raw.BuzzerPin, cfg.Raw.BrakeLightPin, cfg.Raw.ForwardLightPin, persistLockFile)
	if err != nil {
		log.Fatalf("failed to initialize GPIO ports: %v", err)
	}

	imuSrc, err := imu.NewPeriphMPU9250(cfg.Raw.IMUSPIDevice, cfg.Raw.IMUCSPin)
	if err != nil {
		log.Fatalf("failed to initialize IMU: %v", err)
	}

	motorSrc, err := serialvesc.Open(cfg.Raw.MotorSerialPort, uint(cfg.Raw.MotorBaudRate))
	if err != nil {
		log.Fatalf("failed to open motor controller: %v", err)
	}
	defer motorSrc.Close()

	padSrc := pad.NewPeriphADC(cfg.Raw.Pad1Pin, cfg.Raw.Pad2Pin)

	loop := boardloop.New(d, host, imuSrc, motorSrc, padSrc, cfg.Raw.InvertDirection)

	var pub *telemetry.Publisher
	if cfg.Raw.MQTTBroker != "" {
		pub, err = telemetry.NewPublisher(cfg)
		if err != nil {
			log.Printf("boardctl: telemetry publisher disabled, connect error: %v", err)
			pub = nil
		} else {
			defer pub.Close()
		}
	}

	ticker := time.NewTicker(time.Duration(d.LoopPeriod * float64(time.Second)))
	defer ticker.Stop()

	lastState := loop.State()
	for now := range ticker.C {
		if err := loop.Tick(); err != nil {
			log.Printf("boardctl: tick error: %v", err)
			continue
		}

		if pub != nil {
			last := loop.Last
			pub.PublishSample(telemetry.Sample{
				State:      last.State,
				Setpoint:   last.Setpoint,
				Pitch:      last.Pitch,
				Current:    last.Current,
				NoseBias:   last.NoseBias,
				ATRTarget:  last.ATRTarget,
				TurnTarget: last.TurnTarget,
				Locked:     last.Locked,
				Time:       now,
			})
			if last.State != lastState {
				pub.PublishEvent(telemetry.Event{
					Kind:   "state_change",
					Detail: last.State.String(),
					Time:   now,
				})
			}
		}
		lastState = loop.Last.State
	}
}

func persistLockFile(locked bool) {
	// Persistence is handled by lockgesture.Recognizer's own state; this
	// hook exists for a board that wants to survive a power cycle with the
	// lock gesture still engaged. Left a no-op until that hardware exists.
	_ = locked
}
