package gifticon

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RedemptionStatus of a gifticon redemption (matches redemption_status enum).
type RedemptionStatus string

const (
	StatusPending  RedemptionStatus = "pending"
	StatusApproved RedemptionStatus = "approved"
	StatusRejected RedemptionStatus = "rejected"
)

// Gifticon is a catalog item redeemable for points.
type Gifticon struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Brand       string    `db:"brand" json:"brand"`
	Description string    `db:"description" json:"description"`
	PricePoints int       `db:"price_points" json:"price_points"`
	Stock       int       `db:"stock" json:"stock"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CatalogItem is a gifticon with its aggregated redemption count, used by the
// popularity-sorted catalog listing.
type CatalogItem struct {
	Gifticon
	RedemptionCount int `db:"redemption_count" json:"redemption_count"`
}

// Redemption is one user's pending/decided gifticon claim.
type Redemption struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	GifticonID  uuid.UUID        `db:"gifticon_id" json:"gifticon_id"`
	UserID      uuid.UUID        `db:"user_id" json:"user_id"`
	Status      RedemptionStatus `db:"status" json:"status"`
	PricePoints int              `db:"price_points" json:"price_points"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	DecidedAt   sql.NullTime     `db:"decided_at" json:"-"`
}
