package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/betterbench/betterbench/internal/app"
	"github.com/betterbench/betterbench/internal/config"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("run: %v", err)
	}
}
