package point_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moim/moim-api/internal/domain/point"
	"github.com/moim/moim-api/internal/pkg/pagination"
)

type fakeRepo struct {
	balances map[uuid.UUID]int
	entries  []point.Transaction

	listRows []point.Transaction
	listErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{balances: make(map[uuid.UUID]int)}
}

func (f *fakeRepo) LockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (int, error) {
	points, ok := f.balances[userID]
	if !ok {
		return 0, point.ErrProfileNotFound
	}
	return points, nil
}

func (f *fakeRepo) Append(ctx context.Context, tx *sqlx.Tx, t *point.Transaction) error {
	f.entries = append(f.entries, *t)
	return nil
}

func (f *fakeRepo) UpdateBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, points int) error {
	if _, ok := f.balances[userID]; !ok {
		return point.ErrProfileNotFound
	}
	f.balances[userID] = points
	return nil
}

func (f *fakeRepo) EnsureBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = 0
	}
	return nil
}

func (f *fakeRepo) GetBalance(ctx context.Context, userID uuid.UUID) (*point.Balance, error) {
	points, ok := f.balances[userID]
	if !ok {
		return nil, point.ErrProfileNotFound
	}
	return &point.Balance{UserID: userID, Points: points}, nil
}

func (f *fakeRepo) ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]point.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := f.listRows
	if len(rows) > limit+1 {
		rows = rows[:limit+1]
	}
	return rows, nil
}

func (f *fakeRepo) HasRefund(ctx context.Context, tx *sqlx.Tx, referenceType string, referenceID uuid.UUID) (bool, error) {
	for _, e := range f.entries {
		if e.Type == point.TxTypeRefund &&
			e.ReferenceType != nil && *e.ReferenceType == referenceType &&
			e.ReferenceID != nil && *e.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSink struct {
	topics   []string
	payloads []any
	err      error
}

func (f *fakeSink) Enqueue(ctx context.Context, tx *sqlx.Tx, topic string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestRewardSpend(t *testing.T) {
	repo := newFakeRepo()
	sink := &fakeSink{}
	service := point.NewService(repo, nil, sink)

	userID := uuid.New()
	repo.balances[userID] = 100

	refID := uuid.New()
	entry, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID:                   userID,
		Amount:                   point.Override(-60),
		Category:                 "gifticon",
		ReferenceType:            "gifticon_redemption",
		ReferenceID:              &refID,
		Description:              "Redeemed Americano",
		RequireSufficientBalance: true,
	})
	require.NoError(t, err)

	assert.Equal(t, point.TxTypeSpend, entry.Type)
	assert.Equal(t, -60, entry.Amount)
	assert.Equal(t, 40, entry.BalanceAfter)
	require.NotNil(t, entry.ReferenceType)
	assert.Equal(t, "gifticon_redemption", *entry.ReferenceType)

	assert.Equal(t, 40, repo.balances[userID])
	require.Len(t, repo.entries, 1)

	require.Equal(t, []string{point.TopicBalanceChanged}, sink.topics)
	event, ok := sink.payloads[0].(point.BalanceChangedEvent)
	require.True(t, ok)
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, 40, event.Points)
}

func TestRewardInsufficientPoints(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	userID := uuid.New()
	repo.balances[userID] = 100

	_, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID:                   userID,
		Amount:                   point.Override(-150),
		RequireSufficientBalance: true,
	})
	assert.ErrorIs(t, err, point.ErrInsufficientPoints)

	// Nothing may leak out of a failed reward.
	assert.Empty(t, repo.entries)
	assert.Equal(t, 100, repo.balances[userID])
}

func TestRewardExactBalanceSucceeds(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	userID := uuid.New()
	repo.balances[userID] = 100

	entry, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID:                   userID,
		Amount:                   point.Override(-100),
		RequireSufficientBalance: true,
	})
	require.NoError(t, err)
	assert.Equal(t, point.TxTypeSpend, entry.Type)
	assert.Equal(t, 0, entry.BalanceAfter)

	// An identical spend right after must bounce off the empty balance.
	_, err = service.Reward(context.Background(), nil, point.RewardInput{
		UserID:                   userID,
		Amount:                   point.Override(-100),
		RequireSufficientBalance: true,
	})
	assert.ErrorIs(t, err, point.ErrInsufficientPoints)
	assert.Equal(t, 0, repo.balances[userID])
	assert.Len(t, repo.entries, 1)
}

func TestRewardFixedEvent(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, point.RewardTable{point.EventSignup: 500}, nil)

	userID := uuid.New()
	repo.balances[userID] = 0

	entry, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID:   userID,
		Amount:   point.Fixed(point.EventSignup),
		Category: "signup",
	})
	require.NoError(t, err)

	assert.Equal(t, point.TxTypeEarn, entry.Type)
	assert.Equal(t, 500, entry.Amount)
	assert.Equal(t, 500, repo.balances[userID])
}

func TestRewardUnknownEvent(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	userID := uuid.New()
	repo.balances[userID] = 0

	_, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: userID,
		Amount: point.Fixed(point.EventKey("does_not_exist")),
	})
	assert.ErrorIs(t, err, point.ErrUnknownRewardEvent)
	assert.Empty(t, repo.entries)
}

func TestRewardZeroOverride(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	_, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: uuid.New(),
		Amount: point.Override(0),
	})
	assert.ErrorIs(t, err, point.ErrInvalidAmount)
}

func TestRewardNoBalanceRow(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	_, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: uuid.New(),
		Amount: point.Override(10),
	})
	assert.ErrorIs(t, err, point.ErrProfileNotFound)
}

func TestRewardEnqueueFailureAborts(t *testing.T) {
	repo := newFakeRepo()
	sink := &fakeSink{err: errors.New("outbox down")}
	service := point.NewService(repo, nil, sink)

	userID := uuid.New()
	repo.balances[userID] = 10

	_, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: userID,
		Amount: point.Override(5),
	})
	assert.Error(t, err)
}

func TestRewardDerivesTypeFromSign(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	userID := uuid.New()
	repo.balances[userID] = 50

	earn, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: userID,
		Amount: point.Override(30),
	})
	require.NoError(t, err)
	assert.Equal(t, point.TxTypeEarn, earn.Type)

	spend, err := service.Reward(context.Background(), nil, point.RewardInput{
		UserID: userID,
		Amount: point.Override(-30),
	})
	require.NoError(t, err)
	assert.Equal(t, point.TxTypeSpend, spend.Type)
}

func TestHistory(t *testing.T) {
	repo := newFakeRepo()
	service := point.NewService(repo, nil, nil)

	userID := uuid.New()
	now := time.Now().UTC()
	for i := 0; i < 6; i++ {
		repo.listRows = append(repo.listRows, point.Transaction{
			ID:        uuid.New(),
			UserID:    userID,
			Type:      point.TxTypeEarn,
			Amount:    10,
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		})
	}

	page, err := service.History(context.Background(), userID, "", 5)
	require.NoError(t, err)

	assert.Len(t, page.Data, 5)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)

	c, err := pagination.Decode(*page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, page.Data[4].ID, c.ID)
}

func TestHistoryMalformedCursor(t *testing.T) {
	service := point.NewService(newFakeRepo(), nil, nil)

	_, err := service.History(context.Background(), uuid.New(), "not-a-cursor", 10)
	assert.ErrorIs(t, err, pagination.ErrMalformedCursor)
}

func TestBalanceChangedEventPayload(t *testing.T) {
	event := point.BalanceChangedEvent{
		UserID: uuid.New(),
		Points: 940,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.UserID.String(), decoded["user_id"])
	assert.Equal(t, float64(940), decoded["points"])
}
