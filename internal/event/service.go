package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/event-pos/internal/storage/mq"
)

// Service consumes the events written to the outbox by the sale service.
type Service struct {
	logger            *slog.Logger
	mqConsumer        mq.Consumer
	lowStockThreshold int
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	lowStockThreshold int,
) *Service {
	return &Service{
		logger:            logger.With(slog.String("service", "event")),
		mqConsumer:        mqConsumer,
		lowStockThreshold: lowStockThreshold,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := registerJSONHandler(s.mqConsumer, TopicSaleRecorded, s.handleSaleRecordedEvent); err != nil {
		return nil, fmt.Errorf("register sale recorded event handler: %w", err)
	}

	if err := registerJSONHandler(s.mqConsumer, TopicSalesCleared, s.handleSalesClearedEvent); err != nil {
		return nil, fmt.Errorf("register sales cleared event handler: %w", err)
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

func registerJSONHandler[T any](c mq.Consumer, topic string, handle func(context.Context, T) error) error {
	return c.RegisterHandler(topic, func(ctx context.Context, topic string, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}

		if err := handle(ctx, ev); err != nil {
			return fmt.Errorf("handle %s event: %w", topic, err)
		}

		return nil
	})
}
