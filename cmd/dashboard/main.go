package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/balance-core/internal/config"
	"github.com/relabs-tech/balance-core/internal/dashboard"
)

func main() {
	configPath := flag.String("config", "./board_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting balance-core dashboard (MQTT subscriber, HTTP + websocket server)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := dashboard.Run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
