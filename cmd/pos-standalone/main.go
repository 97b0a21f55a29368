package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/event"
	"github.com/tuanvumaihuynh/event-pos/internal/http"
	"github.com/tuanvumaihuynh/event-pos/internal/log"
	"github.com/tuanvumaihuynh/event-pos/internal/relay"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/backend"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/imagestore"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/mq"
	"github.com/tuanvumaihuynh/event-pos/internal/telemetry"
	"github.com/tuanvumaihuynh/event-pos/pkg/cmdutil"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Storage  config.Storage
		Postgres config.Postgres
		HTTP     config.HTTP
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
		Sale     config.Sale
		Image    config.Image
		Admin    config.Admin
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
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

	store, err := backend.Open(ctx, cfg.Storage, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error opening storage: %w", err)
	}
	defer store.Close()
	logger.InfoContext(ctx, "storage opened", slog.String("driver", cfg.Storage.Driver.String()))

	images, err := imagestore.NewOsFSStore(cfg.Image)
	if err != nil {
		return fmt.Errorf("error opening image store: %w", err)
	}

	v, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	productService := service.NewProductService(logger, store.UnitOfWork, store.Products, images, v)
	saleService, err := service.NewSaleService(cfg.Sale, logger, store.UnitOfWork, store.Products, store.Sales, v)
	if err != nil {
		return fmt.Errorf("error creating sale service: %w", err)
	}

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	if cfg.Kafka.Enabled() {
		kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
		if err != nil {
			return fmt.Errorf("error creating kafka producer: %w", err)
		}
		defer kafkaProducer.Close()

		kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("error creating kafka consumer: %w", err)
		}
		defer kafkaConsumer.Close()

		wg.Go(func() {
			svc := event.New(logger, kafkaConsumer, cfg.Sale.LowStockThreshold)
			cleanup, err := svc.Run(ctx)
			if err != nil {
				panic(fmt.Errorf("error running event service: %w", err))
			}
			logger.InfoContext(ctx, "event service started")

			<-interruptChan

			logger.InfoContext(ctx, "event service is shutting down")
			cleanup()

			logger.InfoContext(ctx, "event service is stopped")
		})

		wg.Go(func() {
			svc := relay.NewService(cfg.Relay, logger, store.UnitOfWork, kafkaProducer)
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
		})
	} else {
		logger.WarnContext(ctx, "kafka is not configured, outbox relay and event consumer are disabled")
	}

	wg.Go(func() {
		svc := http.New(cfg.HTTP, cfg.Image, cfg.Admin, logger, http.Deps{
			ProductSvc: productService,
			SaleSvc:    saleService,
			Health:     store.Health,
			Images:     images.Handler(),
		})
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	wg.Wait()

	return nil
}
