package main // Entry point package

import (
	"context"
	"log"

	"github.com/iliyamo/salon-booking/internal/app"
	"github.com/iliyamo/salon-booking/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}
