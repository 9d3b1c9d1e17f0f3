package main

import (
	"flag"
	"log"
	"os"

	"AstroPull/internal/di"
	"AstroPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("starting astro api env=%s backend=%s port=%d", cfg.Environment, cfg.Backend.Type, cfg.Server.Port)

	// Providers connect eagerly, so a bad DSN or broker list fails here.
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("astro api stopped: %v", err)
		os.Exit(1)
	}
}
