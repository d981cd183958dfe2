package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// MemoryDirectory is a UserDirectory held in process memory.
type MemoryDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]domain.Credential
}

// NewMemoryDirectory returns a directory seeded with records.
func NewMemoryDirectory(records ...domain.Credential) *MemoryDirectory {
	d := &MemoryDirectory{byEmail: make(map[string]domain.Credential, len(records))}
	for _, rec := range records {
		d.put(rec)
	}
	return d
}

// Lookup returns a copy of the record for email.
func (d *MemoryDirectory) Lookup(_ context.Context, email string) (*domain.Credential, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// CreateIfAbsent stores rec unless a record with the same email exists.
func (d *MemoryDirectory) CreateIfAbsent(_ context.Context, rec *domain.Credential) (bool, error) {
	email := normalizeEmail(rec.Email)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[email]; exists {
		return false, nil
	}
	stored := *rec
	stored.Email = email
	d.byEmail[email] = stored
	return true, nil
}

func (d *MemoryDirectory) put(rec domain.Credential) {
	rec.Email = normalizeEmail(rec.Email)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[rec.Email] = rec
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
