package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/auth"
)

// Locals keys set by AuthRequired
const (
	LocalUserID   = "user_id"
	LocalUsername = "user_username"
)

// AuthRequired resolves the bearer token into a user id and rejects the
// request with 401 when it is missing or invalid. Browsers cannot set headers
// on a websocket upgrade, so the token is also read from the access_token
// cookie and the token query parameter.
func AuthRequired(jwtService *auth.JWTService, logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.ExtractTokenFromBearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			logger.WithError(err).WithField("path", c.Path()).Debug("Rejected bearer token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUsername, claims.Username)
		return c.Next()
	}
}

// GetUserID retrieves the authenticated user id from the fiber context
func GetUserID(c *fiber.Ctx) (string, error) {
	if userID, ok := c.Locals(LocalUserID).(string); ok && userID != "" {
		return userID, nil
	}
	return "", fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
}
