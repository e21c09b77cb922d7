package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "./board_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting balance-core telemetry console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := telemetry.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
