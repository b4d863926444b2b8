package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/api/middleware"
	"github.com/mangatrack/mangatrack-backend/internal/models"
	"github.com/mangatrack/mangatrack-backend/internal/services"
)

// Chat handles POST /api/chatbot
func Chat(chatbot *services.Chatbot, logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}

		var req models.ChatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid request body",
			})
		}

		resp, err := chatbot.Chat(c.UserContext(), userID, req)
		if err != nil {
			return respondError(c, logger, err)
		}

		return c.JSON(resp)
	}
}

// GetUsage handles GET /api/chatbot/usage
func GetUsage(chatbot *services.Chatbot, logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}

		summary, err := chatbot.Usage(c.UserContext(), userID)
		if err != nil {
			return respondError(c, logger, err)
		}

		return c.JSON(summary)
	}
}

// DiscardSession handles DELETE /api/chatbot/sessions/:id
func DiscardSession(chatbot *services.Chatbot, logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.GetUserID(c)
		if err != nil {
			return err
		}

		if err := chatbot.DiscardSession(c.UserContext(), userID, strings.TrimSpace(c.Params("id"))); err != nil {
			return respondError(c, logger, err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// respondError writes the client-safe form of a chatbot error
func respondError(c *fiber.Ctx, logger logrus.FieldLogger, err error) error {
	status, message := services.Classify(err)
	if status >= fiber.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Path(),
			"request_id": c.Locals("requestid"),
		}).Error("Chatbot request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"message": message,
	})
}
