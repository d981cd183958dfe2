package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/repository"
)

// CredentialVerifier checks email/password pairs against a UserDirectory.
type CredentialVerifier struct {
	directory repository.UserDirectory
	dummyHash string
}

// NewCredentialVerifier builds a verifier. The cost is used for the hash compared
// against when an email is unknown, so it should match the cost of stored hashes.
func NewCredentialVerifier(directory repository.UserDirectory, cost int) (*CredentialVerifier, error) {
	if directory == nil {
		return nil, errors.New("user directory is required")
	}
	dummy, err := HashPassword(uuid.NewString(), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &CredentialVerifier{directory: directory, dummyHash: dummy}, nil
}

// Authenticate returns the credential for email when plaintext matches its hash.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials. Any other
// directory failure is returned wrapped.
func (v *CredentialVerifier) Authenticate(ctx context.Context, email, plaintext string) (*domain.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	rec, err := v.directory.Lookup(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			VerifyPassword(plaintext, v.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if !VerifyPassword(plaintext, rec.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return rec, nil
}
