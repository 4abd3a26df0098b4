package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role (matches user_role enum).
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User represents a platform account.
type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Nickname     string    `db:"nickname"`
	PasswordHash string    `db:"password_hash"`
	Role         Role      `db:"role"`
	IsBanned     bool      `db:"is_banned"`

	LastLoginAt sql.NullTime `db:"last_login_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsAdmin returns true if the user is an admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsActive returns true if the user may use the platform.
func (u *User) IsActive() bool {
	return !u.IsBanned
}
