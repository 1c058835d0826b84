package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/threadline/storefront/internal/catalog"
	"github.com/threadline/storefront/internal/config"
	"github.com/threadline/storefront/internal/database"
	"github.com/threadline/storefront/internal/messaging"
	"github.com/threadline/storefront/internal/orders"
	"github.com/threadline/storefront/internal/telemetry"
	"github.com/threadline/storefront/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "fulfillment-worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	db, err := database.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID)
	defer func() { _ = consumer.Close() }()

	inventory := catalog.NewRepository(db)
	tracker := orders.NewRepository(db)
	fulfillmentHandler := worker.NewFulfillmentHandler(inventory, tracker, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting fulfillment worker", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.OrderTopic)

	if err := consumer.Consume(ctx, fulfillmentHandler.Handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
