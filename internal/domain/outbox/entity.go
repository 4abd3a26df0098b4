package outbox

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status of an outbox event (matches outbox_status enum).
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Event is a persisted notification intent. It is written in the same
// transaction as the state change it describes and delivered asynchronously,
// so a crash between commit and publish cannot drop the notification.
type Event struct {
	ID            uuid.UUID       `db:"id"`
	Topic         string          `db:"topic"`
	Payload       json.RawMessage `db:"payload"`
	Status        Status          `db:"status"`
	Attempts      int             `db:"attempts"`
	NextAttemptAt time.Time       `db:"next_attempt_at"`
	CreatedAt     time.Time       `db:"created_at"`
	DeliveredAt   sql.NullTime    `db:"delivered_at"`
}
