package mq

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/event-pos/internal/config"
)

// ProduceMsg is one record bound for the broker. Messages sharing a
// PartitionKey keep their relative order.
type ProduceMsg struct {
	Topic        string
	Headers      map[string]string
	Payload      []byte
	PartitionKey *string
}

type Producer interface {
	Produce(ctx context.Context, msg ProduceMsg) error
}

var _ Producer = (*KafkaProducer)(nil)

type KafkaProducer struct {
	cl *kgo.Client
}

func NewKafkaProducer(ctx context.Context, cfg config.Kafka) (*KafkaProducer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Addresses...),
		kgo.AllowAutoTopicCreation(),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
		kgo.WithContext(ctx),
		kgo.WithHooks(kafkaHooks()...),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := cl.Ping(pingCtx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	return &KafkaProducer{cl: cl}, nil
}

// Produce blocks until the broker acknowledges msg or ctx is done.
func (p *KafkaProducer) Produce(ctx context.Context, msg ProduceMsg) error {
	ctx, span := tracer.Start(ctx, "KafkaProducer.Produce",
		trace.WithAttributes(
			attribute.String("topic", msg.Topic),
			attribute.Int("payload_bytes", len(msg.Payload)),
		),
	)
	defer span.End()

	rec, err := p.cl.ProduceSync(ctx, buildProduceRecord(msg)).First()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "produce message")
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}

	span.SetAttributes(
		attribute.Int("partition", int(rec.Partition)),
		attribute.Int64("offset", rec.Offset),
	)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (p *KafkaProducer) Close() {
	p.cl.Close()
}

// buildProduceRecord keys the record by PartitionKey so every event of one
// product lands on the same partition, in commit order.
func buildProduceRecord(msg ProduceMsg) *kgo.Record {
	headers := make([]kgo.RecordHeader, 0, len(msg.Headers))
	for _, k := range slices.Sorted(maps.Keys(msg.Headers)) {
		headers = append(headers, kgo.RecordHeader{
			Key:   k,
			Value: []byte(msg.Headers[k]),
		})
	}

	r := &kgo.Record{
		Topic:   msg.Topic,
		Value:   msg.Payload,
		Headers: headers,
	}

	if msg.PartitionKey != nil {
		r.Key = []byte(*msg.PartitionKey)
	}

	return r
}
