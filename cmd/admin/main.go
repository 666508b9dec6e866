package main

import (
	"context"
	"flag"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nikhileshnr/mess-rebate-system/internal/admin"
	"github.com/nikhileshnr/mess-rebate-system/internal/app"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}

	store, err := app.OpenStore(cfg.Database.DSN, cfg.Database.MigrationsDir)
	if err != nil {
		logger.Error.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	var sessions *app.TokenManager
	if cfg.Auth.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Auth.RedisURL)
		if err != nil {
			logger.Error.Fatalf("Failed to parse redis URL: %v", err)
		}
		sessions = app.NewTokenManager(redis.NewClient(opt), cfg.Auth.SessionKeyTemplate)
		defer sessions.Close()
	}

	console := admin.NewConsole(sessions, store, os.Stdout)
	if err := console.Run(context.Background(), flag.Args()); err != nil {
		logger.Error.Printf("%v", err)
		os.Exit(1)
	}
}
