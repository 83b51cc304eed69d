// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/replay/main.go
//
// Runs a recorded trace through a session and prints the permission status
// followed by every normalized sample as JSON lines on stdout.
//
// Run:
//
//	go run ./cmd/replay -trace internal/replay/testdata/ios_granted.yaml
package main

import (
	"flag"
	"log"
	"os"

	"github.com/relabs-tech/devicemotion/internal/app"
	"github.com/relabs-tech/devicemotion/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (defaults when empty)")
	tracePath := flag.String("trace", "", "YAML trace to replay")
	flag.Parse()

	if *tracePath == "" {
		log.Fatal("missing -trace")
	}

	if *configPath != "" {
		if err := config.InitGlobal(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := app.RunReplay(*tracePath, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
