package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
	"github.com/tuanvumaihuynh/event-pos/pkg/outbox"
)

type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

type CleanupFunc func()

type Consumer interface {
	RegisterHandler(topic string, handler HandlerFunc) error
	Run(ctx context.Context) (CleanupFunc, error)
}

var _ Consumer = (*KafkaConsumer)(nil)

type KafkaConsumer struct {
	cl       *kgo.Client
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

func NewKafkaConsumer(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*KafkaConsumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Addresses...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.AllowAutoTopicCreation(),
		kgo.DisableAutoCommit(),
		kgo.WithContext(ctx),
		kgo.WithHooks(kafkaHooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := cl.Ping(pingCtx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("failed to ping kafka: %w", err)
	}

	return newKafkaConsumer(cl, logger), nil
}

func newKafkaConsumer(cl *kgo.Client, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cl:       cl,
		handlers: make(map[string]HandlerFunc),
		log:      logger.With(slog.String("component", "kafka_consumer")),
	}
}

func (c *KafkaConsumer) RegisterHandler(topic string, handler HandlerFunc) error {
	if _, exists := c.handlers[topic]; exists {
		return fmt.Errorf("handler for topic %s already registered", topic)
	}

	if c.cl != nil {
		c.cl.AddConsumeTopics(topic)
	}
	c.handlers[topic] = handler
	return nil
}

func (c *KafkaConsumer) Run(ctx context.Context) (CleanupFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				fetches := c.cl.PollFetches(ctx)
				if fetches.IsClientClosed() {
					return
				}
				if errs := fetches.Errors(); len(errs) > 0 {
					if errors.Is(errs[0].Err, context.Canceled) {
						// context cancelled, likely due to shutdown
						continue
					}

					c.log.ErrorContext(ctx, "error fetching messages",
						slog.Any("error", errs),
					)
					continue
				}

				fetches.EachRecord(func(rec *kgo.Record) {
					c.handleRecord(ctx, rec)
				})

				if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
					c.log.ErrorContext(ctx, "error committing offsets",
						slog.Any("error", err),
					)
				}
			}
		}
	}()

	cleanup := func() {
		cancel()
		<-doneChan
		c.cl.Close()
	}

	return cleanup, nil
}

// handleRecord dispatches rec to its topic handler with the trace context and
// correlation id carried in the record headers. Handler failures are logged;
// the offset is committed either way.
func (c *KafkaConsumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	ctx = outbox.ContextFromHeaders(ctx, outbox.RecordHeaders(rec))
	ctx, span := tracer.Start(ctx, "KafkaConsumer.Handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("topic", rec.Topic),
		),
	)
	defer span.End()

	defer func() {
		if rvr := recover(); rvr != nil {
			span.RecordError(fmt.Errorf("panic: %v", rvr))
			span.SetStatus(codes.Error, "panic in handler")

			c.log.ErrorContext(ctx, "panic in message handler",
				slog.String("topic", rec.Topic),
				slog.Any("recover", rvr),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn, exists := c.handlers[rec.Topic]
	if !exists {
		c.log.WarnContext(ctx, "no handler registered for topic",
			slog.String("topic", rec.Topic),
		)
		return
	}

	if err := fn(ctx, rec.Topic, rec.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		c.log.ErrorContext(ctx, "error handling message",
			slog.String("topic", rec.Topic),
			slog.String("key", string(rec.Key)),
			slog.Any("error", err),
		)
		return
	}
}

func (c *KafkaConsumer) Close() {
	c.cl.Close()
}
