package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/domain"
	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	"github.com/spec-kit/auth-gateway/internal/ratelimit"
)

// Login outcomes recorded in metrics.
const (
	LoginOutcomeSuccess   = "success"
	LoginOutcomeFailure   = "failure"
	LoginOutcomeThrottled = "throttled"
	LoginOutcomeError     = "error"
)

// Authenticator checks an email/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, plaintext string) (*domain.Credential, error)
}

// LoginLimiter throttles repeated login failures.
type LoginLimiter interface {
	Check(ctx context.Context, email, ip string) error
	RecordFailure(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// AuthService coordinates the login flow.
type AuthService struct {
	verifier   Authenticator
	tokens     *auth.TokenManager
	limiter    LoginLimiter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
// Limiter, Dispatcher and Metrics are optional.
type AuthDependencies struct {
	Verifier   Authenticator
	Tokens     *auth.TokenManager
	Limiter    LoginLimiter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		verifier:   deps.Verifier,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Login authenticates the caller and issues an access token.
//
// It returns auth.ErrInvalidCredentials for any credential mismatch and a
// *ratelimit.LimitedError when the caller is throttled.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*domain.TokenGrant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	actor := events.Actor{Email: email, IP: clientIP}

	if err := s.checkLimit(ctx, email, clientIP); err != nil {
		var limited *ratelimit.LimitedError
		if errors.As(err, &limited) {
			s.metrics.RecordLogin(LoginOutcomeThrottled)
			s.publish(ctx, events.NewEvent(events.EventLoginThrottled, actor,
				events.LoginThrottledPayload{RetryAfterSeconds: int(limited.RetryAfter.Seconds())}))
		}
		return nil, err
	}

	cred, err := s.verifier.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.recordFailure(ctx, email, clientIP)
			s.metrics.RecordLogin(LoginOutcomeFailure)
			s.publish(ctx, events.NewEvent(events.EventLoginFailed, actor, events.LoginFailedPayload{Reason: "invalid_credentials"}))
			return nil, auth.ErrInvalidCredentials
		}
		s.metrics.RecordLogin(LoginOutcomeError)
		s.publish(ctx, events.NewEvent(events.EventLoginFailed, actor, events.LoginFailedPayload{Reason: "error"}))
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		SubjectID:   cred.ID,
		Email:       cred.Email,
		Role:        cred.Role,
		DisplayName: cred.DisplayName,
	}, 0)
	if err != nil {
		s.metrics.RecordLogin(LoginOutcomeError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.Warn("login limiter reset failed", zap.Error(err))
		}
	}

	actor.SubjectID = cred.ID
	s.metrics.RecordLogin(LoginOutcomeSuccess)
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, actor,
		events.LoginSucceededPayload{Role: string(cred.Role), ExpiresAt: expiresAt}))

	return &domain.TokenGrant{
		AccessToken: token,
		TokenType:   domain.TokenTypeBearer,
		ExpiresIn:   int64(s.tokens.TTL() / time.Second),
		ExpiresAt:   expiresAt,
	}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// checkLimit fails open when the limiter backend is unavailable.
func (s *AuthService) checkLimit(ctx context.Context, email, ip string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, email, ip)
	if err == nil || errors.Is(err, ratelimit.ErrRateLimited) {
		return err
	}
	s.logger.Warn("login limiter unavailable, allowing attempt", zap.Error(err))
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, email, ip string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, email, ip); err != nil {
		s.logger.Warn("login limiter record failed", zap.Error(err))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Debug("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
