package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/auth"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// TokenIssuer is the slice of the auth manager the login handler needs.
type TokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (string, error)
	RevokeToken(ctx context.Context, token string) error
}

// AuthHandler serves the Django-style token endpoints.
type AuthHandler struct {
	logger *zap.Logger
	issuer TokenIssuer
}

func NewAuthHandler(logger *zap.Logger, issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{logger: logger, issuer: issuer}
}

// Login handles POST /api-token-auth.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	token, err := h.issuer.IssueToken(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errJSON(c, fiber.StatusUnauthorized, "invalid credentials")
		}
		h.logger.Error("api.login_failed", zap.String("username", req.Username), zap.Error(err))
		return errJSON(c, fiber.StatusInternalServerError, "token issue failed")
	}

	return c.JSON(fiber.Map{"token": token})
}

// Logout handles POST /api/v1/logout: it revokes the caller's own token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := auth.TokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return errJSON(c, fiber.StatusBadRequest, "missing token")
	}
	if err := h.issuer.RevokeToken(c.Context(), token); err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err.Error())
	}

	if user, ok := c.Locals(auth.LocalUser).(*model.AuthUser); ok {
		h.logger.Info("api.logout", zap.String("username", user.Username))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
