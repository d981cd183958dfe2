package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

func TestMemoryDirectoryLookup(t *testing.T) {
	dir := NewMemoryDirectory(domain.Credential{
		ID:           "1",
		Email:        "Admin@LegalTech.com ",
		PasswordHash: "hash",
		Role:         domain.RoleAdmin,
		DisplayName:  "Admin User",
	})

	rec, err := dir.Lookup(context.Background(), "admin@legaltech.com")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.ID)
	assert.Equal(t, "admin@legaltech.com", rec.Email)
	assert.Equal(t, domain.RoleAdmin, rec.Role)

	rec, err = dir.Lookup(context.Background(), "  ADMIN@legaltech.com")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.ID)

	_, err = dir.Lookup(context.Background(), "unknown@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDirectoryLookupReturnsCopy(t *testing.T) {
	dir := NewMemoryDirectory(domain.Credential{ID: "1", Email: "a@x.com", Role: domain.RoleAdmin})

	rec, err := dir.Lookup(context.Background(), "a@x.com")
	require.NoError(t, err)
	rec.Role = domain.RoleLawyer

	again, err := dir.Lookup(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, again.Role)
}

func TestMemoryDirectoryCreateIfAbsent(t *testing.T) {
	dir := NewMemoryDirectory()
	ctx := context.Background()

	created, err := dir.CreateIfAbsent(ctx, &domain.Credential{ID: "1", Email: "A@x.com", PasswordHash: "first"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = dir.CreateIfAbsent(ctx, &domain.Credential{ID: "9", Email: "a@x.com", PasswordHash: "second"})
	require.NoError(t, err)
	assert.False(t, created)

	rec, err := dir.Lookup(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "first", rec.PasswordHash)
}
