package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/devicemotion/internal/app"
	"github.com/relabs-tech/devicemotion/internal/config"
)

func main() {
	configPath := flag.String("config", "./devicemotion_config.txt", "path to configuration file")
	tracePath := flag.String("trace", "", "YAML trace to replay (mock host when empty)")
	flag.Parse()

	if *tracePath == "" {
		log.Println("starting devicemotion MQTT producer (mock)")
	} else {
		log.Println("starting devicemotion MQTT producer (trace)")
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(*tracePath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
