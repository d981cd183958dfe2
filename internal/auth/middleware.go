package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/events"
	"github.com/spec-kit/auth-gateway/internal/observability"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

const claimsKey = "auth_claims"

// AuthMiddleware validates bearer tokens and stores their claims on the request.
type AuthMiddleware struct {
	tokens     *TokenManager
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

// NewAuthMiddleware constructs middleware. metrics and dispatcher may be nil.
func NewAuthMiddleware(tokens *TokenManager, logger *zap.Logger, metrics *observability.Metrics, dispatcher events.Dispatcher) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger, metrics: metrics, dispatcher: dispatcher}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("Not authenticated")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("Not authenticated")
	}

	claims, err := m.tokens.Verify(strings.TrimSpace(parts[1]))
	label := TokenErrorLabel(err)
	m.metrics.RecordTokenVerification(label)
	if err != nil {
		path := utils.CopyString(c.Path())
		m.logger.Info("token rejected",
			zap.String("reason", label),
			zap.String("path", path),
			zap.String("ip", c.IP()),
			zap.Error(err))
		m.publishRejection(c, label, path)
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewTokenExpired(err)
		}
		return apperrors.NewTokenInvalid(err)
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

func (m *AuthMiddleware) publishRejection(c *fiber.Ctx, reason, path string) {
	if m.dispatcher == nil {
		return
	}
	event := events.NewEvent(events.EventTokenRejected, events.Actor{IP: c.IP()},
		events.TokenRejectedPayload{Reason: reason, Path: path})
	if err := m.dispatcher.Publish(c.UserContext(), event); err != nil {
		m.logger.Debug("event handler failed", zap.Error(err))
	}
}

// ClaimsFromContext retrieves the verified claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
