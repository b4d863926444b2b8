package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// ChatBurstLimit returns a per-user limiter for the chatbot endpoint allowing
// perMinute requests per minute. It sits in front of the daily quota and does
// not consume quota for rejected requests. A non-positive value disables it.
func ChatBurstLimit(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Rate limit by user ID if authenticated
			if userID, err := GetUserID(c); err == nil {
				return fmt.Sprintf("chat:user:%s", userID)
			}
			// Otherwise by IP
			return fmt.Sprintf("chat:ip:%s", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many messages. Please wait a moment before sending more.",
			})
		},
	})
}
