package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fastprodman/creatorledger/internal/repos/outbox"
	"github.com/google/uuid"
)

var _ outbox.Outbox = (*outboxRepo)(nil)

type outboxRepo struct{ db *sql.DB }

func New(db *sql.DB) *outboxRepo {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Enqueue(ctx context.Context, tx *sql.Tx, eventType, partitionKey string, payload any) (outbox.Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return outbox.Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	ev := outbox.Event{
		ID:           uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      body,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO outbox_events (id, event_type, partition_key, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, ev.ID, ev.EventType, ev.PartitionKey, string(body)).Scan(&ev.CreatedAt)
	if err != nil {
		return outbox.Event{}, fmt.Errorf("enqueue %s: %w", eventType, err)
	}

	return ev, nil
}

func (r *outboxRepo) ClaimPending(ctx context.Context, tx *sql.Tx, limit int) ([]outbox.Event, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_type, partition_key, payload, created_at
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	defer rows.Close()

	var out []outbox.Event
	for rows.Next() {
		var (
			ev      outbox.Event
			payload []byte
		)
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.PartitionKey, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Payload = payload
		out = append(out, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	return out, nil
}

func (r *outboxRepo) MarkSent(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE outbox_events
		SET sent_at = clock_timestamp()
		WHERE id = ANY($1::text[]::uuid[])
	`, keys)
	if err != nil {
		return fmt.Errorf("mark outbox events sent: %w", err)
	}

	return nil
}
