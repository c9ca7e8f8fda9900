package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/minibar-selfservice/internal/api"
	"github.com/example/minibar-selfservice/internal/auth"
	"github.com/example/minibar-selfservice/internal/command"
	"github.com/example/minibar-selfservice/internal/config"
	"github.com/example/minibar-selfservice/internal/coordinator"
	"github.com/example/minibar-selfservice/internal/events"
	"github.com/example/minibar-selfservice/internal/infrastructure/kafka"
	"github.com/example/minibar-selfservice/internal/infrastructure/store"
	"github.com/example/minibar-selfservice/internal/previo"
	"github.com/example/minibar-selfservice/internal/query"
)

func main() {
	configPath := flag.String("config", "minibar.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Kiosk] %v", err)
	}

	log.Println("[Kiosk] ========================================")
	log.Printf("[Kiosk] Minibar self-service - %s", cfg.Name)
	log.Println("[Kiosk] ========================================")
	log.Printf("[Kiosk] Storage: %s (%s)", cfg.Storage.Driver, cfg.Storage.DSN)

	// Storage
	var blobs store.BlobStore
	switch cfg.Storage.Driver {
	case "postgres":
		db, err := store.ConnectPostgres(cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("[Kiosk] Failed to connect to PostgreSQL: %v", err)
		}
		blobs, err = store.NewPostgresStore(db)
		if err != nil {
			log.Fatalf("[Kiosk] %v", err)
		}
	default:
		blobs, err = store.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("[Kiosk] %v", err)
		}
	}
	defer blobs.Close()

	// Notification bus
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = events.NewBusPublisher(producer)
		log.Printf("[Kiosk] Kafka: %v topic %s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		log.Println("[Kiosk] Kafka disabled, notifications dropped")
	}

	// Coordinator
	ctx := context.Background()
	coord, err := coordinator.New(ctx, blobs, cfg.Name)
	if err != nil {
		log.Fatalf("[Kiosk] Failed to initialize coordinator: %v", err)
	}
	coord.Subscribe(func(change coordinator.Change) {
		log.Printf("[Kiosk] State change: %s %s %s", change.Action, change.Item, change.Room)
	})

	// Expiry sweeper
	sweeper := previo.NewSweeper(coord)
	sweeper.Start()
	defer sweeper.Stop()

	// Handlers
	queryHandler := query.NewHandler(coord)
	cmdHandler := command.NewHandler(coord, queryHandler, publisher)

	jwtService := auth.NewJWTService(cfg.Admin.JWTSecret, 8*time.Hour)
	handlers := api.NewHandlers(cmdHandler, queryHandler)
	authHandlers := api.NewAuthHandlers(cfg.Admin.PasswordHash, jwtService)

	router := api.NewRouter(api.RouterConfig{
		Handlers:     handlers,
		AuthHandlers: authHandlers,
		JWTService:   jwtService,
	})

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	go func() {
		log.Printf("[Kiosk] Server started on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Kiosk] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Kiosk] Shutting down...")
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
}
