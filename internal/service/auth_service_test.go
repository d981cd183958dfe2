package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	"github.com/spec-kit/auth-gateway/internal/ratelimit"
	"github.com/spec-kit/auth-gateway/internal/repository"
)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Check(ctx context.Context, email, ip string) error {
	return m.Called(ctx, email, ip).Error(0)
}

func (m *mockLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	return m.Called(ctx, email, ip).Error(0)
}

func (m *mockLimiter) Reset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type fixture struct {
	svc       *AuthService
	tokens    *auth.TokenManager
	published []events.Event
}

func newFixture(t *testing.T, limiter LoginLimiter) *fixture {
	t.Helper()
	hash, err := auth.HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	dir := repository.NewMemoryDirectory(domain.Credential{
		ID: "1", Email: "admin@legaltech.com", PasswordHash: hash, Role: domain.RoleAdmin, DisplayName: "Admin User",
	})
	verifier, err := auth.NewCredentialVerifier(dir, bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(config.AuthConfig{
		JWTSecret: "test-secret", JWTAlgorithm: "HS256", AccessTokenTTLMinutes: 30,
	})
	require.NoError(t, err)

	f := &fixture{tokens: tokens}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventLoginSucceeded, events.EventLoginFailed, events.EventLoginThrottled} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}
	f.svc = NewAuthService(AuthDependencies{
		Verifier:   verifier,
		Tokens:     tokens,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
	})
	return f
}

func TestLoginSuccess(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Check", mock.Anything, "admin@legaltech.com", "10.0.0.1").Return(nil)
	limiter.On("Reset", mock.Anything, "admin@legaltech.com").Return(nil)
	f := newFixture(t, limiter)

	grant, err := f.svc.Login(context.Background(), " Admin@LegalTech.com", "admin123", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenTypeBearer, grant.TokenType)
	assert.Equal(t, int64(1800), grant.ExpiresIn)

	claims, err := f.tokens.Verify(grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "Admin User", claims.DisplayName)

	limiter.AssertExpectations(t)
	limiter.AssertNotCalled(t, "RecordFailure", mock.Anything, mock.Anything, mock.Anything)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventLoginSucceeded, f.published[0].Type)
	assert.Equal(t, "1", f.published[0].Actor.SubjectID)
}

func TestLoginInvalidCredentialsRecordsFailure(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Check", mock.Anything, mock.Anything, "10.0.0.1").Return(nil)
	limiter.On("RecordFailure", mock.Anything, mock.Anything, "10.0.0.1").Return(nil)
	f := newFixture(t, limiter)

	_, wrongPassword := f.svc.Login(context.Background(), "admin@legaltech.com", "wrong", "10.0.0.1")
	_, unknownUser := f.svc.Login(context.Background(), "ghost@legaltech.com", "admin123", "10.0.0.1")

	assert.ErrorIs(t, wrongPassword, auth.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, auth.ErrInvalidCredentials)
	limiter.AssertNumberOfCalls(t, "RecordFailure", 2)
	limiter.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	require.Len(t, f.published, 2)
	assert.Equal(t, events.EventLoginFailed, f.published[1].Type)
}

func TestLoginThrottled(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Check", mock.Anything, "admin@legaltech.com", "").Return(&ratelimit.LimitedError{RetryAfter: time.Minute})
	f := newFixture(t, limiter)

	_, err := f.svc.Login(context.Background(), "admin@legaltech.com", "admin123", "")

	var limited *ratelimit.LimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, time.Minute, limited.RetryAfter)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventLoginThrottled, f.published[0].Type)
}

func TestLoginFailsOpenWhenLimiterUnavailable(t *testing.T) {
	limiter := &mockLimiter{}
	limiter.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(ratelimit.ErrRedisUnavailable)
	limiter.On("Reset", mock.Anything, mock.Anything).Return(ratelimit.ErrRedisUnavailable)
	f := newFixture(t, limiter)

	grant, err := f.svc.Login(context.Background(), "admin@legaltech.com", "admin123", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.AccessToken)
}

func TestLoginWithoutLimiter(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Login(context.Background(), "admin@legaltech.com", "nope", "")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

type brokenAuthenticator struct{ err error }

func (b brokenAuthenticator) Authenticate(context.Context, string, string) (*domain.Credential, error) {
	return nil, b.err
}

func TestLoginDirectoryFailureIsNotInvalidCredentials(t *testing.T) {
	boom := errors.New("db down")
	f := newFixture(t, nil)
	f.svc.verifier = brokenAuthenticator{err: boom}

	_, err := f.svc.Login(context.Background(), "admin@legaltech.com", "admin123", "")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}
