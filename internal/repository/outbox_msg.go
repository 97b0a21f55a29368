package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/event-pos/internal/storage/db"
)

type CreateOutboxMsgParams struct {
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type ListUnprocessedOutboxMsgsParams struct {
	BatchSize int32
}

type ListUnprocessedOutboxMsgsResult struct {
	ID           uuid.UUID
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type BulkUpdateOutboxMsgsItem struct {
	ID    uuid.UUID
	Error *string
}

type BulkUpdateOutboxMsgsParams struct {
	Items []BulkUpdateOutboxMsgsItem
}

type OutboxMsgRepository interface {
	CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error
	// ListUnprocessedOutboxMsgs returns the oldest unprocessed messages. Inside a
	// transaction the returned rows stay locked until it ends.
	ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error)
	// BulkUpdateOutboxMsgs marks messages as processed, recording the publish
	// error when there was one.
	BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error
}

type outboxMsgRepository struct {
	db db.DB
}

func NewOutboxMsgRepository(db db.DB) OutboxMsgRepository {
	return &outboxMsgRepository{
		db: db,
	}
}

type outboxMsgRow struct {
	ID           uuid.UUID       `db:"id"`
	Topic        string          `db:"topic"`
	Headers      []byte          `db:"headers"`
	Payload      json.RawMessage `db:"payload"`
	PartitionKey *string         `db:"partition_key"`
}

func (r outboxMsgRepository) CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error {
	headersBytes, err := json.Marshal(params.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate outbox msg id: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO outbox_messages (id, topic, headers, payload, partition_key, created_at)
		VALUES (@id, @topic, @headers, @payload, @partition_key, @created_at)
	`, pgx.NamedArgs{
		"id":            id,
		"topic":         params.Topic,
		"headers":       json.RawMessage(headersBytes),
		"payload":       params.Payload,
		"partition_key": params.PartitionKey,
		"created_at":    time.Now(),
	}); err != nil {
		return fmt.Errorf("outbox msg create: %w", classifyErr(err))
	}

	return nil
}

func (r outboxMsgRepository) ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, topic, headers, payload, partition_key
		FROM outbox_messages
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, params.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("outbox msg list unprocessed: %w", classifyErr(err))
	}

	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByName[outboxMsgRow])
	if err != nil {
		return nil, fmt.Errorf("collect outbox msgs: %w", classifyErr(err))
	}

	results := make([]ListUnprocessedOutboxMsgsResult, 0, len(msgs))
	for _, msg := range msgs {
		headers := map[string]string{}
		if len(msg.Headers) > 0 {
			if err := json.Unmarshal(msg.Headers, &headers); err != nil {
				return nil, fmt.Errorf("unmarshal headers: %w", err)
			}
		}

		results = append(results, ListUnprocessedOutboxMsgsResult{
			ID:           msg.ID,
			Topic:        msg.Topic,
			Headers:      headers,
			Payload:      msg.Payload,
			PartitionKey: msg.PartitionKey,
		})
	}

	return results, nil
}

func (r outboxMsgRepository) BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error {
	ids := make([]uuid.UUID, 0, len(params.Items))
	errs := make([]*string, 0, len(params.Items))
	for _, item := range params.Items {
		ids = append(ids, item.ID)
		errs = append(errs, item.Error)
	}

	_, err := r.db.Exec(ctx, `
		UPDATE outbox_messages AS o
		SET
			processed_at = NOW(),
			error        = e.error
		FROM (
			SELECT
				id,
				error
			FROM (
				SELECT UNNEST(@ids::uuid[])  AS id,
					UNNEST(@errors::text[]) AS error
			) AS t
		) AS e
		WHERE o.id = e.id;
	`, pgx.NamedArgs{
		"ids":    ids,
		"errors": errs,
	})
	if err != nil {
		return fmt.Errorf("outbox msg bulk update: %w", classifyErr(err))
	}

	return nil
}
