package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned when the account exists but has been deactivated or deleted.
	ErrAccountDisabled = errors.New("account is disabled")
)

// Service issues signed tokens for customer accounts.
type Service interface {
	Login(ctx context.Context, email, password string) (string, error)
}
