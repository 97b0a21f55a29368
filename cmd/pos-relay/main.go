package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/log"
	"github.com/tuanvumaihuynh/event-pos/internal/relay"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/mq"
	"github.com/tuanvumaihuynh/event-pos/internal/telemetry"
	"github.com/tuanvumaihuynh/event-pos/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running relay application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if !cfg.Kafka.Enabled() {
		return fmt.Errorf("KAFKA_ADDRESSES is required by the relay")
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	interruptChan := cmdutil.InterruptChan()

	svc := relay.NewService(cfg.Relay, logger, repository.NewUnitOfWork(dbClient), kafkaProducer)
	cleanup := svc.Run(ctx)
	logger.InfoContext(ctx, "relay service started")

	<-interruptChan

	logger.InfoContext(ctx, "relay service is shutting down")
	cleanup()

	drainCtx, drainCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	if n, err := svc.Drain(drainCtx); err != nil {
		logger.WarnContext(ctx, "relay drain stopped early", slog.Int("relayed", n), slog.Any("error", err))
	} else if n > 0 {
		logger.InfoContext(ctx, "relay drained outbox", slog.Int("relayed", n))
	}
	drainCancel()

	logger.InfoContext(ctx, "relay service is stopped")

	return nil
}
