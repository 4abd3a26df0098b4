package gifticon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/moim/moim-api/internal/domain/point"
	"github.com/moim/moim-api/internal/pkg/database"
	"github.com/moim/moim-api/internal/pkg/pagination"
)

const referenceTypeRedemption = "gifticon_redemption"

// Service orchestrates gifticon catalog, redemption and refund flows on top
// of the point ledger.
type Service struct {
	db     *sqlx.DB
	repo   Repository
	points *point.Service
}

// NewService creates the gifticon service.
func NewService(db *sqlx.DB, repo Repository, points *point.Service) *Service {
	return &Service{db: db, repo: repo, points: points}
}

// Catalog returns one page of the gifticon catalog in the requested order.
func (s *Service) Catalog(ctx context.Context, sortKey string, cursorToken string, limit int) (pagination.Page[CatalogItem], error) {
	var page pagination.Page[CatalogItem]

	sort := CatalogSort(sortKey)
	if sortKey == "" {
		sort = SortNewest
	}

	var cursor *pagination.Cursor
	if cursorToken != "" {
		var err error
		cursor, err = pagination.Decode(cursorToken)
		if err != nil {
			return page, err
		}
	}

	limit = pagination.ClampLimit(limit)

	items, err := s.repo.ListCatalog(ctx, sort, cursor, limit)
	if err != nil {
		return page, err
	}

	return pagination.Paginate(items, limit, func(item CatalogItem) (uuid.UUID, any) {
		switch sort {
		case SortPopular:
			return item.ID, item.RedemptionCount
		case SortPrice:
			return item.ID, item.PricePoints
		default:
			return item.ID, item.CreatedAt
		}
	}), nil
}

// Redeem spends the gifticon's point price and creates a pending redemption.
// Stock decrement, the spend and the redemption row commit or roll back as
// one transaction; an insufficient balance leaves stock untouched.
func (s *Service) Redeem(ctx context.Context, userID, gifticonID uuid.UUID) (*Redemption, error) {
	gifticon, err := s.repo.GetGifticon(ctx, gifticonID)
	if err != nil {
		return nil, err
	}

	red := &Redemption{
		ID:          uuid.New(),
		GifticonID:  gifticonID,
		UserID:      userID,
		Status:      StatusPending,
		PricePoints: gifticon.PricePoints,
		CreatedAt:   time.Now().UTC(),
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.DecrementStock(ctx, tx, gifticonID); err != nil {
			return err
		}

		_, err := s.points.Reward(ctx, tx, point.RewardInput{
			UserID:                   userID,
			Amount:                   point.Override(-gifticon.PricePoints),
			Type:                     point.TxTypeSpend,
			Category:                 "gifticon",
			ReferenceType:            referenceTypeRedemption,
			ReferenceID:              &red.ID,
			Description:              "Redeemed " + gifticon.Name,
			RequireSufficientBalance: true,
		})
		if err != nil {
			return err
		}

		return s.repo.CreateRedemption(ctx, tx, red)
	})
	if err != nil {
		return nil, err
	}

	return red, nil
}

// Approve marks a pending redemption approved. No point movement: the spend
// already happened at redeem time.
func (s *Service) Approve(ctx context.Context, redemptionID uuid.UUID) (*Redemption, error) {
	return s.decide(ctx, redemptionID, StatusApproved, false)
}

// Reject marks a pending redemption rejected and refunds the spend. The
// refund is idempotent on the redemption reference, so a retried rejection
// can never refund twice.
func (s *Service) Reject(ctx context.Context, redemptionID uuid.UUID) (*Redemption, error) {
	return s.decide(ctx, redemptionID, StatusRejected, true)
}

func (s *Service) decide(ctx context.Context, redemptionID uuid.UUID, status RedemptionStatus, refund bool) (*Redemption, error) {
	var red *Redemption

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		red, err = s.repo.GetRedemptionForUpdate(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if red.Status != StatusPending {
			return ErrAlreadyDecided
		}

		if err := s.repo.SetRedemptionStatus(ctx, tx, redemptionID, status); err != nil {
			return err
		}
		red.Status = status

		if !refund {
			return nil
		}

		refunded, err := s.points.HasRefund(ctx, tx, referenceTypeRedemption, redemptionID)
		if err != nil {
			return err
		}
		if refunded {
			return nil
		}

		if err := s.repo.RestoreStock(ctx, tx, red.GifticonID); err != nil {
			return err
		}

		_, err = s.points.Reward(ctx, tx, point.RewardInput{
			UserID:        red.UserID,
			Amount:        point.Override(red.PricePoints),
			Type:          point.TxTypeRefund,
			Category:      "gifticon",
			ReferenceType: referenceTypeRedemption,
			ReferenceID:   &redemptionID,
			Description:   "Redemption rejected, points refunded",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return red, nil
}

// History returns one page of the user's redemptions, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, cursorToken string, limit int) (pagination.Page[Redemption], error) {
	var page pagination.Page[Redemption]

	var cursor *pagination.Cursor
	if cursorToken != "" {
		var err error
		cursor, err = pagination.Decode(cursorToken)
		if err != nil {
			return page, err
		}
	}

	limit = pagination.ClampLimit(limit)

	rows, err := s.repo.ListRedemptionsByUser(ctx, userID, cursor, limit)
	if err != nil {
		return page, err
	}

	return pagination.Paginate(rows, limit, func(r Redemption) (uuid.UUID, any) {
		return r.ID, r.CreatedAt
	}), nil
}

// Create adds a gifticon to the catalog (admin only).
func (s *Service) Create(ctx context.Context, g *Gifticon) error {
	g.ID = uuid.New()
	return s.repo.CreateGifticon(ctx, g)
}
