package errs

import "errors"

// Domain sentinel errors, mapped to HTTP status codes and websocket close
// codes in handlers.
var (
	ErrSessionExists   = errors.New("live session already exists for this activity")
	ErrSessionNotFound = errors.New("live session not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidToken    = errors.New("invalid or expired token")

	ErrTooManySessions       = errors.New("live session limit reached")
	ErrSessionFull           = errors.New("session has maximum viewers")
	ErrTooManyAllowedViewers = errors.New("allowed viewer list too large")
	ErrPushRateLimited       = errors.New("location push rate limit exceeded")
)
