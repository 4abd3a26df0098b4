package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrNicknameTaken      = errors.New("nickname already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
