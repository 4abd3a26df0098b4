package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/moim/moim-api/internal/domain/point"
	"github.com/moim/moim-api/internal/domain/user"
	"github.com/moim/moim-api/internal/pkg/database"
	"github.com/moim/moim-api/internal/pkg/jwt"
	"github.com/moim/moim-api/internal/pkg/password"
)

// Service handles registration and login.
type Service struct {
	db     *sqlx.DB
	users  user.Repository
	points *point.Service
	jwt    *jwt.Service
}

// NewService creates the auth service.
func NewService(db *sqlx.DB, users user.Repository, points *point.Service, jwtService *jwt.Service) *Service {
	return &Service{db: db, users: users, points: points, jwt: jwtService}
}

// Register creates the account, seeds the balance row and grants the signup
// reward in one transaction. The reward is a system grant and deliberately
// skips the sufficiency check: registration must never fail on balance.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u := &user.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Nickname:     strings.TrimSpace(req.Nickname),
		PasswordHash: hash,
		Role:         user.RoleMember,
	}

	var granted *point.Transaction
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.users.Create(ctx, tx, u); err != nil {
			return err
		}
		if err := s.points.EnsureBalance(ctx, tx, u.ID); err != nil {
			return err
		}

		granted, err = s.points.Reward(ctx, tx, point.RewardInput{
			UserID:        u.ID,
			Amount:        point.Fixed(point.EventSignup),
			Type:          point.TxTypeEarn,
			Category:      "signup",
			ReferenceType: "user",
			ReferenceID:   &u.ID,
			Description:   "Signup reward",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateAccessToken(u.ID, string(u.Role), u.IsBanned)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		UserID:      u.ID,
		Nickname:    u.Nickname,
		Role:        string(u.Role),
		AccessToken: token,
		Points:      granted.BalanceAfter,
	}, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if err == user.ErrUserNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBanned {
		return nil, ErrAccountBanned
	}

	token, err := s.jwt.GenerateAccessToken(u.ID, string(u.Role), u.IsBanned)
	if err != nil {
		return nil, err
	}

	// Login tracking is best-effort; the login itself already succeeded.
	_ = s.users.UpdateLastLogin(ctx, u.ID)

	points := 0
	if balance, err := s.points.Balance(ctx, u.ID); err == nil {
		points = balance.Points
	}

	return &AuthResponse{
		UserID:      u.ID,
		Nickname:    u.Nickname,
		Role:        string(u.Role),
		AccessToken: token,
		Points:      points,
	}, nil
}
