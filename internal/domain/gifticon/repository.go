package gifticon

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

// CatalogSort identifies one of the supported catalog orderings.
type CatalogSort string

const (
	SortNewest  CatalogSort = "newest"
	SortPrice   CatalogSort = "price"
	SortPopular CatalogSort = "popular"
)

// Repository defines gifticon data access.
type Repository interface {
	CreateGifticon(ctx context.Context, g *Gifticon) error
	GetGifticon(ctx context.Context, id uuid.UUID) (*Gifticon, error)
	DecrementStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	RestoreStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	ListCatalog(ctx context.Context, sortKey CatalogSort, cursor *pagination.Cursor, limit int) ([]CatalogItem, error)
	CreateRedemption(ctx context.Context, tx *sqlx.Tx, red *Redemption) error
	GetRedemptionForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Redemption, error)
	SetRedemptionStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status RedemptionStatus) error
	ListRedemptionsByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]Redemption, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the gifticon repository.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateGifticon(ctx context.Context, g *Gifticon) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gifticons (id, name, brand, description, price_points, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, g.ID, g.Name, g.Brand, g.Description, g.PricePoints, g.Stock)
	if err != nil {
		return fmt.Errorf("create gifticon: %w", err)
	}
	return nil
}

func (r *repository) GetGifticon(ctx context.Context, id uuid.UUID) (*Gifticon, error) {
	var g Gifticon
	err := r.db.GetContext(ctx, &g, `
		SELECT id, name, brand, description, price_points, stock, created_at
		FROM gifticons WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGifticonNotFound
		}
		return nil, fmt.Errorf("get gifticon: %w", err)
	}
	return &g, nil
}

// DecrementStock takes one unit of stock atomically. The conditional update
// is the whole concurrency story for stock: two racing redemptions of the
// last unit cannot both pass stock > 0.
func (r *repository) DecrementStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE gifticons SET stock = stock - 1 WHERE id = $1 AND stock > 0`, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock rows: %w", err)
	}
	if rows == 0 {
		// Distinguish sold-out from missing without leaving the tx.
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM gifticons WHERE id = $1)`, id)
		if err != nil {
			return fmt.Errorf("check gifticon: %w", err)
		}
		if !exists {
			return ErrGifticonNotFound
		}
		return ErrOutOfStock
	}
	return nil
}

func (r *repository) RestoreStock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE gifticons SET stock = stock + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

// ListCatalog returns limit+1 catalog rows in the requested order. The
// popularity sort orders by an aggregate, so its cursor predicate goes into
// HAVING against the same COUNT expression as the ORDER BY — a predicate on a
// plain column there would disagree with the ordering and skip rows.
func (r *repository) ListCatalog(ctx context.Context, sortKey CatalogSort, cursor *pagination.Cursor, limit int) ([]CatalogItem, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	switch sortKey {
	case SortPopular:
		return r.listCatalogPopular(ctx2, cursor, limit)
	case SortPrice:
		return r.listCatalogPlain(ctx2, pagination.Sort{Expr: "g.price_points", Direction: pagination.Asc}, cursor, limit)
	case SortNewest:
		return r.listCatalogPlain(ctx2, pagination.Sort{Expr: "g.created_at", Direction: pagination.Desc}, cursor, limit)
	default:
		return nil, ErrInvalidSortKey
	}
}

func (r *repository) listCatalogPlain(ctx context.Context, sort pagination.Sort, cursor *pagination.Cursor, limit int) ([]CatalogItem, error) {
	query := `
		SELECT g.id, g.name, g.brand, g.description, g.price_points, g.stock, g.created_at,
		       COUNT(red.id) AS redemption_count
		FROM gifticons g
		LEFT JOIN gifticon_redemptions red ON red.gifticon_id = g.id
	`
	args := make([]any, 0, 3)

	if cursor != nil {
		frag, cursorArgs := sort.Predicate("g.id", cursor, len(args)+1)
		query += " WHERE " + frag
		args = append(args, cursorArgs...)
	}

	query += " GROUP BY g.id"
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", sort.OrderBy("g.id"), len(args)+1)
	args = append(args, limit+1)

	items := make([]CatalogItem, 0, limit+1)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return items, nil
}

func (r *repository) listCatalogPopular(ctx context.Context, cursor *pagination.Cursor, limit int) ([]CatalogItem, error) {
	sort := pagination.Sort{Expr: "COUNT(red.id)", Direction: pagination.Desc}

	query := `
		SELECT g.id, g.name, g.brand, g.description, g.price_points, g.stock, g.created_at,
		       COUNT(red.id) AS redemption_count
		FROM gifticons g
		LEFT JOIN gifticon_redemptions red ON red.gifticon_id = g.id
		GROUP BY g.id
	`
	args := make([]any, 0, 3)

	if cursor != nil {
		frag, cursorArgs := sort.Predicate("g.id", cursor, len(args)+1)
		query += " HAVING " + frag
		args = append(args, cursorArgs...)
	}

	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", sort.OrderBy("g.id"), len(args)+1)
	args = append(args, limit+1)

	items := make([]CatalogItem, 0, limit+1)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list catalog by popularity: %w", err)
	}
	return items, nil
}

func (r *repository) CreateRedemption(ctx context.Context, tx *sqlx.Tx, red *Redemption) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO gifticon_redemptions (id, gifticon_id, user_id, status, price_points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, red.ID, red.GifticonID, red.UserID, red.Status, red.PricePoints, red.CreatedAt)
	if err != nil {
		return fmt.Errorf("create redemption: %w", err)
	}
	return nil
}

// GetRedemptionForUpdate locks the redemption row so approve/reject decisions
// for the same redemption are serialized.
func (r *repository) GetRedemptionForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Redemption, error) {
	var red Redemption
	err := tx.GetContext(ctx, &red, `
		SELECT id, gifticon_id, user_id, status, price_points, created_at, decided_at
		FROM gifticon_redemptions WHERE id = $1 FOR UPDATE
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRedemptionNotFound
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &red, nil
}

func (r *repository) SetRedemptionStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status RedemptionStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE gifticon_redemptions SET status = $2, decided_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("set redemption status: %w", err)
	}
	return nil
}

func (r *repository) ListRedemptionsByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]Redemption, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	sort := pagination.Sort{Expr: "created_at", Direction: pagination.Desc}

	query := `
		SELECT id, gifticon_id, user_id, status, price_points, created_at, decided_at
		FROM gifticon_redemptions
		WHERE user_id = $1`
	args := []any{userID}

	if cursor != nil {
		frag, cursorArgs := sort.Predicate("id", cursor, len(args)+1)
		query += " AND " + frag
		args = append(args, cursorArgs...)
	}

	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", sort.OrderBy("id"), len(args)+1)
	args = append(args, limit+1)

	redemptions := make([]Redemption, 0, limit+1)
	if err := r.db.SelectContext(ctx2, &redemptions, query, args...); err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return redemptions, nil
}
