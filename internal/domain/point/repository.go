package point

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/moim/moim-api/internal/pkg/pagination"
)

const queryTimeout = 3 * time.Second

// Repository provides ledger and balance data access. All mutating methods run
// inside a caller-owned transaction and never commit or roll back themselves.
type Repository interface {
	LockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error)
	Append(ctx context.Context, tx *sqlx.Tx, t *Transaction) error
	UpdateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, points int) error
	EnsureBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]Transaction, error)
	HasRefund(ctx context.Context, tx *sqlx.Tx, referenceType string, referenceID uuid.UUID) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the point ledger repository.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Append inserts one immutable ledger row. The caller holds the balance row
// lock and has already computed balance_after.
func (r *repository) Append(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO point_transactions (
			id, user_id, type, amount, balance_after, category,
			reference_type, reference_id, description, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		t.ID, t.UserID, t.Type, t.Amount, t.BalanceAfter, t.Category,
		t.ReferenceType, t.ReferenceID, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}
	return nil
}

// UpdateBalance writes the new cached total. Must run in the same transaction
// as the Append so the two can only become visible together.
func (r *repository) UpdateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, points int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE user_balances SET points = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, points,
	)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// EnsureBalance seeds the zero-point balance row for a new user.
func (r *repository) EnsureBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, points, updated_at)
		VALUES ($1, 0, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("%w: ensure balance row", ErrInternal)
	}
	return nil
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var b Balance
	err := r.db.GetContext(ctx2, &b,
		`SELECT user_id, points, updated_at FROM user_balances WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: get balance", ErrInternal)
	}

	return &b, nil
}

// ListTransactions returns up to limit+1 ledger rows for the user, newest
// first, resuming after cursor when supplied. The extra row lets the caller
// detect whether more pages exist.
func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sort := pagination.Sort{Expr: "created_at", Direction: pagination.Desc}

	query := `
		SELECT id, user_id, type, amount, balance_after, category,
		       reference_type, reference_id, description, created_at
		FROM point_transactions
		WHERE user_id = $1`
	args := []any{userID}

	if cursor != nil {
		frag, cursorArgs := sort.Predicate("id", cursor, len(args)+1)
		query += " AND " + frag
		args = append(args, cursorArgs...)
	}

	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", sort.OrderBy("id"), len(args)+1)
	args = append(args, limit+1)

	transactions := make([]Transaction, 0, limit+1)
	if err := r.db.SelectContext(ctx2, &transactions, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

// HasRefund reports whether a refund entry already references the given
// business event. Used for idempotency when a rejection is retried; reads
// through the caller's tx so it sees rows written earlier in that tx.
func (r *repository) HasRefund(ctx context.Context, tx *sqlx.Tx, referenceType string, referenceID uuid.UUID) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := tx.GetContext(ctx2, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM point_transactions
			WHERE type = $1 AND reference_type = $2 AND reference_id = $3
		)
	`, TxTypeRefund, referenceType, referenceID)
	if err != nil {
		return false, fmt.Errorf("%w: check refund", ErrInternal)
	}

	return exists, nil
}
