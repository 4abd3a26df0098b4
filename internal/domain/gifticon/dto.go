package gifticon

import (
	"time"

	"github.com/google/uuid"
)

// CreateGifticonRequest for POST /gifticons (admin)
type CreateGifticonRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Brand       string `json:"brand" validate:"required,max=60"`
	Description string `json:"description" validate:"max=2000"`
	PricePoints int    `json:"price_points" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"required,gte=0"`
}

// RedemptionResponse is the API shape of a redemption.
type RedemptionResponse struct {
	ID          uuid.UUID `json:"id"`
	GifticonID  uuid.UUID `json:"gifticon_id"`
	Status      string    `json:"status"`
	PricePoints int       `json:"price_points"`
	CreatedAt   time.Time `json:"created_at"`
	DecidedAt   *string   `json:"decided_at,omitempty"`
}

// ToRedemptionResponse converts a redemption entity.
func ToRedemptionResponse(r *Redemption) *RedemptionResponse {
	resp := &RedemptionResponse{
		ID:          r.ID,
		GifticonID:  r.GifticonID,
		Status:      string(r.Status),
		PricePoints: r.PricePoints,
		CreatedAt:   r.CreatedAt,
	}
	if r.DecidedAt.Valid {
		decided := r.DecidedAt.Time.Format(time.RFC3339)
		resp.DecidedAt = &decided
	}
	return resp
}
