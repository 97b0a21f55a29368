package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/event-pos/internal/repository"
)

type outboxMsgRepository struct {
	store *Store
	tx    *tx
}

func (r *outboxMsgRepository) CreateOutboxMsg(ctx context.Context, params repository.CreateOutboxMsgParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate outbox msg id: %w", err)
	}

	msg := &outboxMsg{
		id:           id,
		topic:        params.Topic,
		headers:      cloneHeaders(params.Headers),
		payload:      slices.Clone(params.Payload),
		partitionKey: params.PartitionKey,
		createdAt:    time.Now(),
	}

	return r.store.run(ctx, r.tx, func(t *tx) error {
		t.outboxNew = append(t.outboxNew, msg)
		return nil
	})
}

func (r *outboxMsgRepository) ListUnprocessedOutboxMsgs(ctx context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	results := make([]repository.ListUnprocessedOutboxMsgsResult, 0, params.BatchSize)
	for _, msg := range r.store.outbox {
		if int32(len(results)) >= params.BatchSize {
			break
		}
		if msg.processedAt != nil {
			continue
		}
		results = append(results, repository.ListUnprocessedOutboxMsgsResult{
			ID:           msg.id,
			Topic:        msg.topic,
			Headers:      cloneHeaders(msg.headers),
			Payload:      slices.Clone(msg.payload),
			PartitionKey: msg.partitionKey,
		})
	}

	return results, nil
}

func (r *outboxMsgRepository) BulkUpdateOutboxMsgs(ctx context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	return r.store.run(ctx, r.tx, func(t *tx) error {
		t.outboxUpdates = append(t.outboxUpdates, params.Items...)
		return nil
	})
}
