package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// ErrNotFound is returned by a UserDirectory when no record exists for an email.
var ErrNotFound = errors.New("credential not found")

// UserDirectory resolves credential records by email.
type UserDirectory interface {
	Lookup(ctx context.Context, email string) (*domain.Credential, error)
}
