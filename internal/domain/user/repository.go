package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// Repository defines user data access
type Repository interface {
	Create(ctx context.Context, tx *sqlx.Tx, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new user repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new user inside the caller's transaction so account
// creation, balance seeding and the signup reward commit together.
func (r *repository) Create(ctx context.Context, tx *sqlx.Tx, u *User) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, nickname, password_hash, role, is_banned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, u.ID, u.Email, u.Nickname, u.PasswordHash, u.Role, u.IsBanned)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			switch pqErr.Constraint {
			case "users_nickname_key":
				return ErrNicknameTaken
			default:
				return ErrEmailAlreadyExists
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
