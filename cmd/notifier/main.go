package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/minibar-selfservice/internal/config"
	"github.com/example/minibar-selfservice/internal/infrastructure/kafka"
	"github.com/example/minibar-selfservice/internal/notification"
)

func main() {
	configPath := flag.String("config", "minibar.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Notifier] %v", err)
	}

	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Desk notifier - %s", cfg.Name)
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v topic %s", cfg.Kafka.Brokers, cfg.Kafka.Topic)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "desk-notifier")
	defer consumer.Close()

	handler := notification.NewHandler(nil)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[Notifier] Shutting down...")
		cancel()
	}()

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		log.Fatalf("[Notifier] Consumer error: %v", err)
	}
}
