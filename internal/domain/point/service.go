package point

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/moim/moim-api/internal/pkg/pagination"
)

// TopicBalanceChanged is the outbox topic for balance change notifications.
const TopicBalanceChanged = "points:events"

// EventSink persists a notification intent inside the caller's transaction.
// Delivery happens asynchronously after commit; a crash between commit and
// publish can therefore never drop the notification.
type EventSink interface {
	Enqueue(ctx context.Context, tx *sqlx.Tx, topic string, payload any) error
}

// RewardInput describes one named reward or spend event against a user's
// balance. RequireSufficientBalance declares the caller's policy explicitly:
// spends set it, system grants that must never fail on balance do not.
type RewardInput struct {
	UserID                   uuid.UUID
	Amount                   RewardAmount
	Type                     TxType // derived from the amount's sign when empty
	Category                 string
	ReferenceType            string
	ReferenceID              *uuid.UUID
	Description              string
	RequireSufficientBalance bool
}

// BalanceChangedEvent is the outbox payload published after a reward commits.
type BalanceChangedEvent struct {
	UserID      uuid.UUID    `json:"user_id"`
	Points      int          `json:"points"`
	Transaction *Transaction `json:"transaction"`
}

// Service is the point reward engine shared by every feature that touches
// points (registration, posts, gifticon redemption, exchanges).
type Service struct {
	repo    Repository
	rewards RewardTable
	events  EventSink
}

// NewService creates the point service. events may be nil when no realtime
// fan-out is wired (e.g. in tests).
func NewService(repo Repository, rewards RewardTable, events EventSink) *Service {
	if rewards == nil {
		rewards = DefaultRewardTable()
	}
	return &Service{repo: repo, rewards: rewards, events: events}
}

// Reward applies one balance mutation inside the caller's transaction: lock
// the balance row, check sufficiency, append the ledger entry, update the
// cached balance and enqueue the balance-changed event. The caller owns the
// transaction boundary; on any error nothing of this becomes visible.
func (s *Service) Reward(ctx context.Context, tx *sqlx.Tx, input RewardInput) (*Transaction, error) {
	amount, err := input.Amount.Resolve(s.rewards)
	if err != nil {
		return nil, err
	}

	points, err := s.repo.LockBalance(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.RequireSufficientBalance && amount < 0 && points+amount < 0 {
		return nil, ErrInsufficientPoints
	}

	txType := input.Type
	if txType == "" {
		txType = typeForAmount(amount)
	}

	entry := &Transaction{
		ID:           uuid.New(),
		UserID:       input.UserID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: points + amount,
		Category:     input.Category,
		Description:  input.Description,
		CreatedAt:    time.Now().UTC(),
	}
	if input.ReferenceType != "" {
		entry.ReferenceType = &input.ReferenceType
		entry.ReferenceID = input.ReferenceID
	}

	if err := s.repo.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateBalance(ctx, tx, input.UserID, entry.BalanceAfter); err != nil {
		return nil, err
	}

	if s.events != nil {
		event := BalanceChangedEvent{
			UserID:      input.UserID,
			Points:      entry.BalanceAfter,
			Transaction: entry,
		}
		if err := s.events.Enqueue(ctx, tx, TopicBalanceChanged, event); err != nil {
			return nil, err
		}
	}

	return entry, nil
}

// EnsureBalance seeds the zero balance row for a newly registered user.
func (s *Service) EnsureBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	return s.repo.EnsureBalance(ctx, tx, userID)
}

// Balance returns the user's cached point total.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.repo.GetBalance(ctx, userID)
}

// HasRefund reports whether a refund already references the given event,
// as seen from within the caller's transaction.
func (s *Service) HasRefund(ctx context.Context, tx *sqlx.Tx, referenceType string, referenceID uuid.UUID) (bool, error) {
	return s.repo.HasRefund(ctx, tx, referenceType, referenceID)
}

// History returns one page of the user's ledger, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, cursorToken string, limit int) (pagination.Page[Transaction], error) {
	var page pagination.Page[Transaction]

	var cursor *pagination.Cursor
	if cursorToken != "" {
		var err error
		cursor, err = pagination.Decode(cursorToken)
		if err != nil {
			return page, err
		}
	}

	limit = pagination.ClampLimit(limit)

	rows, err := s.repo.ListTransactions(ctx, userID, cursor, limit)
	if err != nil {
		return page, err
	}

	return pagination.Paginate(rows, limit, func(t Transaction) (uuid.UUID, any) {
		return t.ID, t.CreatedAt
	}), nil
}
