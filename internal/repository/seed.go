package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// DemoUser is a development account seeded with a plaintext password.
type DemoUser struct {
	ID          string
	Email       string
	Password    string
	Role        domain.Role
	DisplayName string
}

// DemoUsers are the accounts available in development deployments.
var DemoUsers = []DemoUser{
	{ID: "1", Email: "admin@legaltech.com", Password: "admin123", Role: domain.RoleAdmin, DisplayName: "Admin User"},
	{ID: "2", Email: "lawyer@legaltech.com", Password: "lawyer123", Role: domain.RoleLawyer, DisplayName: "Legal Practitioner"},
}

// Seeder stores a credential unless one with the same email already exists.
type Seeder interface {
	CreateIfAbsent(ctx context.Context, rec *domain.Credential) (bool, error)
}

// SeedDemoUsers hashes and stores users, returning how many were created.
func SeedDemoUsers(ctx context.Context, seeder Seeder, users []DemoUser, hash func(string) (string, error)) (int, error) {
	created := 0
	for _, user := range users {
		if !user.Role.Valid() {
			return created, fmt.Errorf("seed %s: unknown role %q", user.Email, user.Role)
		}
		hashed, err := hash(user.Password)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", user.Email, err)
		}
		ok, err := seeder.CreateIfAbsent(ctx, &domain.Credential{
			ID:           user.ID,
			Email:        user.Email,
			PasswordHash: hashed,
			Role:         user.Role,
			DisplayName:  user.DisplayName,
		})
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", user.Email, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}
