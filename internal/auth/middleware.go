package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/rate"
	"github.com/Ridgeline-Capital/assethub/pkg/utils"
)

// LocalUser is the fiber.Ctx locals key holding the verified *model.AuthUser.
const LocalUser = "auth_user"

// Middleware verifies `Authorization: Token <hex>` headers, attaches the
// user, and applies the per-token rate limit.
func Middleware(logger *zap.Logger, mgr *Manager, rateMgr *rate.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := TokenFromHeader(header)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or malformed Authorization header"})
		}

		user, err := mgr.VerifyToken(c.Context(), token)
		if err != nil {
			logger.Debug("auth.token_rejected", zap.String("token", utils.MaskToken(token)))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		if rateMgr != nil && !rateMgr.GetLimiter(token).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}

		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// TokenFromHeader accepts the Django REST framework header shape
// "Token <hex>".
func TokenFromHeader(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
