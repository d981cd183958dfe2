package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/ratelimit"
	"github.com/spec-kit/auth-gateway/internal/service"
	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// AuthHandler exposes login and current-user endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseAndValidate(c, &req); err != nil {
		return err
	}

	grant, err := h.auth.Login(c.UserContext(), req.Email, req.Password, c.IP())
	if err != nil {
		var limited *ratelimit.LimitedError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return apperrors.NewInvalidCredentials()
		case errors.As(err, &limited):
			return apperrors.NewTooManyRequests(limited.RetryAfter)
		default:
			return apperrors.NewInternalError(err)
		}
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(dto.TokenResponse{
		AccessToken: grant.AccessToken,
		TokenType:   grant.TokenType,
		ExpiresIn:   grant.ExpiresIn,
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Not authenticated")
	}
	return c.JSON(dto.CurrentUserResponse{
		UserID:   claims.Subject,
		Email:    claims.Email,
		Role:     string(claims.Role),
		FullName: claims.DisplayName,
		Exp:      claims.ExpiresAtTime().Unix(),
	})
}
