package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/mq"
	"github.com/tuanvumaihuynh/event-pos/pkg/ptr"
)

// Service moves committed outbox messages to the message broker.
type Service struct {
	cfg        config.Relay
	logger     *slog.Logger
	uow        repository.UnitOfWork
	mqProducer mq.Producer

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	uow repository.UnitOfWork,
	mqProducer mq.Producer,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     logger.With(slog.String("service", "relay")),
		uow:        uow,
		mqProducer: mqProducer,
		stopChan:   make(chan struct{}),
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
			<-stoppedChan
		}
		cancel()
	}
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if _, err := s.RelayBatch(ctx); err != nil {
				s.logger.ErrorContext(ctx, "error relaying outbox msgs", slog.Any("error", err))
			}
		}
	}
}

// Drain relays batches until the outbox is empty, ctx is done or a batch
// fails. It returns how many messages it handled.
func (s *Service) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := s.RelayBatch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
}

// RelayBatch publishes one batch of unprocessed messages and marks each as
// processed, recording the publish error of the ones that failed. It returns
// how many messages it handled.
func (s *Service) RelayBatch(ctx context.Context) (int, error) {
	handled := 0
	if err := s.uow.WithTx(ctx, func(tx repository.Tx) error {
		outboxMsgs, err := tx.OutboxMsgs().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
			//nolint:gosec
			BatchSize: int32(s.cfg.BatchSize),
		})
		if err != nil {
			return fmt.Errorf("list unprocessed outbox msgs: %w", err)
		}

		if len(outboxMsgs) == 0 {
			return nil
		}

		s.logger.InfoContext(ctx, "relaying outbox msgs", slog.Int("count", len(outboxMsgs)))

		items := make([]repository.BulkUpdateOutboxMsgsItem, 0, len(outboxMsgs))
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)

		for _, msg := range outboxMsgs {
			wg.Go(func() {
				item := repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}

				if err := s.publish(ctx, mq.ProduceMsg{
					Topic:        msg.Topic,
					Headers:      msg.Headers,
					Payload:      msg.Payload,
					PartitionKey: msg.PartitionKey,
				}); err != nil {
					s.logger.ErrorContext(ctx,
						"error producing message",
						slog.String("outbox_msg_id", msg.ID.String()),
						slog.String("topic", msg.Topic),
						slog.Any("error", err),
					)
					item.Error = ptr.New(err.Error())
				}

				mu.Lock()
				items = append(items, item)
				mu.Unlock()
			})
		}

		wg.Wait()

		if err := tx.OutboxMsgs().BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
			Items: items,
		}); err != nil {
			return fmt.Errorf("bulk update outbox msgs: %w", err)
		}

		handled = len(items)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("uow with tx: %w", err)
	}

	return handled, nil
}

// publish offers msg to the broker up to PublishAttempts times, each attempt
// bounded by PublishTimeout.
func (s *Service) publish(ctx context.Context, msg mq.ProduceMsg) error {
	attempts := max(s.cfg.PublishAttempts, 1)
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(max(s.cfg.PublishBackoff, time.Millisecond)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if s.cfg.PublishTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.PublishTimeout)
			defer cancel()
		}

		if err := s.mqProducer.Produce(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
