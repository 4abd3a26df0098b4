package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists and claims outbox events. Claiming and marking run
// inside a worker-owned transaction so the SKIP LOCKED row locks are held
// until the batch's outcomes are committed.
type Repository interface {
	Enqueue(ctx context.Context, tx *sqlx.Tx, topic string, payload any) error
	ClaimBatch(ctx context.Context, tx *sqlx.Tx, limit int) ([]Event, error)
	MarkDelivered(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, attempts int, nextAttemptAt time.Time, terminal bool) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the outbox repository.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Enqueue writes the event inside the caller's transaction so the intent
// commits or rolls back together with the state change it describes.
func (r *repository) Enqueue(ctx context.Context, tx *sqlx.Tx, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, topic, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
	`, uuid.New(), topic, data, StatusPending)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ClaimBatch locks due pending events. SKIP LOCKED lets multiple worker
// instances drain the table without blocking or double-claiming each other.
func (r *repository) ClaimBatch(ctx context.Context, tx *sqlx.Tx, limit int) ([]Event, error) {
	events := make([]Event, 0, limit)
	err := tx.SelectContext(ctx, &events, `
		SELECT id, topic, payload, status, attempts, next_attempt_at, created_at, delivered_at
		FROM outbox_events
		WHERE status = $1 AND next_attempt_at <= NOW()
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	return events, nil
}

func (r *repository) MarkDelivered(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $2, delivered_at = NOW()
		WHERE id = $1
	`, id, StatusDelivered)
	if err != nil {
		return fmt.Errorf("mark outbox delivered: %w", err)
	}
	return nil
}

// MarkFailed records a delivery attempt; terminal failures stop retrying.
func (r *repository) MarkFailed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, attempts int, nextAttemptAt time.Time, terminal bool) error {
	status := StatusPending
	if terminal {
		status = StatusFailed
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $2, attempts = $3, next_attempt_at = $4
		WHERE id = $1
	`, id, status, attempts, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}
