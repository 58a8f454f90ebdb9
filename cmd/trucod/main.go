package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"truco/internal/app"
	"truco/internal/config"
	"truco/internal/ports"
	"truco/internal/ports/httpapi"
	"truco/internal/ports/natsbus"
)

const defaultAddr = ":8080"

func main() {
	addr := os.Getenv("TRUCO_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	if path := os.Getenv("TRUCO_CONFIG"); path != "" {
		if err := config.LoadGameConfig(path); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	secret := os.Getenv("TRUCO_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("TRUCO_TOKEN_SECRET is required")
	}
	tokens := app.NewTokenService(secret, config.ReconnectTokenTTL())

	var publisher ports.ResultPublisher
	if url := os.Getenv("NATS_URL"); url != "" {
		nc, err := natsbus.Connect(url, "trucod")
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer nc.Drain()
		publisher = natsbus.NewPublisher(nc, os.Getenv("NATS_SUBJECT_PREFIX"))
		log.Printf("Publishing results to %s", nc.ConnectedUrl())
	}

	rooms := app.NewRegistry(app.NewService(nil), publisher, nil)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.SetupRouter(rooms, tokens),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("trucod listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
