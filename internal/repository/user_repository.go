package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// pgxQuerier is the subset of *pgxpool.Pool used by PostgresDirectory.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresDirectory is a UserDirectory backed by the users table.
type PostgresDirectory struct {
	pool pgxQuerier
}

// NewPostgresDirectory returns a Postgres-backed implementation.
func NewPostgresDirectory(pool pgxQuerier) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// Lookup returns the credential stored for email or ErrNotFound.
func (r *PostgresDirectory) Lookup(ctx context.Context, email string) (*domain.Credential, error) {
	const query = `
        SELECT id, email, password_hash, role, display_name
        FROM users WHERE email=$1`

	var cred domain.Credential
	if err := r.pool.QueryRow(ctx, query, normalizeEmail(email)).Scan(
		&cred.ID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.Role,
		&cred.DisplayName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cred, nil
}

// CreateIfAbsent inserts rec unless its email is already present.
func (r *PostgresDirectory) CreateIfAbsent(ctx context.Context, rec *domain.Credential) (bool, error) {
	const query = `
        INSERT INTO users (id, email, password_hash, role, display_name)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (email) DO NOTHING`

	cmd, err := r.pool.Exec(ctx, query,
		rec.ID,
		normalizeEmail(rec.Email),
		rec.PasswordHash,
		rec.Role,
		rec.DisplayName,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
