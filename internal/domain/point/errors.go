package point

import "errors"

var (
	// ErrInsufficientPoints is returned when a debit with the sufficiency check
	// enabled would drive the balance negative. Business error, never retried.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrProfileNotFound is returned when the user has no balance row. This is
	// an integrity violation, fatal for the request.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrLockTimeout is returned when the balance row lock could not be
	// acquired within the database's lock/deadlock window. Transient: callers
	// may retry the whole transaction from scratch, never a partial step.
	ErrLockTimeout = errors.New("balance lock timeout")

	// ErrUnknownRewardEvent is returned when a fixed reward key has no
	// configured amount.
	ErrUnknownRewardEvent = errors.New("unknown reward event")

	// ErrInvalidAmount is returned when a reward resolves to zero points.
	ErrInvalidAmount = errors.New("invalid amount: must be non-zero")

	ErrInternal = errors.New("internal error")
)
