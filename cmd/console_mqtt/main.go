package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/devicemotion/internal/app"
	"github.com/relabs-tech/devicemotion/internal/config"
)

func main() {
	configPath := flag.String("config", "./devicemotion_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting devicemotion console (MQTT subscriber)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
