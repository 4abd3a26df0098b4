package point

import (
	"time"

	"github.com/google/uuid"
)

// BalanceResponse is the API shape of a user's balance.
type BalanceResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToBalanceResponse converts a balance entity.
func ToBalanceResponse(b *Balance) *BalanceResponse {
	return &BalanceResponse{
		UserID:    b.UserID,
		Points:    b.Points,
		UpdatedAt: b.UpdatedAt,
	}
}
