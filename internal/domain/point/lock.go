package point

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres error codes that mean the row lock was not acquired in time.
const (
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

// LockBalance takes the exclusive row lock on the user's balance inside the
// caller's transaction and returns the current points. The lock is held until
// the enclosing transaction commits or rolls back, so two concurrent mutations
// of the same user's balance are fully serialized; different users never block
// each other.
func (r *repository) LockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	var points int
	err := tx.QueryRowContext(ctx,
		`SELECT points FROM user_balances WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		if isLockTimeout(err) {
			return 0, ErrLockTimeout
		}
		return 0, fmt.Errorf("%w: lock balance row", ErrInternal)
	}

	return points, nil
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqLockNotAvailable || string(pqErr.Code) == pqDeadlockDetected
}
