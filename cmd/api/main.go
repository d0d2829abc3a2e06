package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"adshift/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server.
//
// @title adshift automation API
// @version 1.0
// @description Ad-set scheduling, stop-loss automation and operator settings.
// @BasePath /
func main() {
	log.Println("adshift api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("adshift api stopped with error: %v", err)
	}
}
