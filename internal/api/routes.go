package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/api/handlers"
	"github.com/mangatrack/mangatrack-backend/internal/api/middleware"
	"github.com/mangatrack/mangatrack-backend/internal/auth"
	"github.com/mangatrack/mangatrack-backend/internal/services"
)

// Dependencies are the collaborators the routes are wired to
type Dependencies struct {
	Chatbot        *services.Chatbot
	JWT            *auth.JWTService
	Logger         logrus.FieldLogger
	BurstPerMinute int
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	// ========================================
	// Public routes (no authentication needed)
	// ========================================

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "mangatrack-backend",
		})
	})

	// ========================================
	// Protected routes (authentication required)
	// ========================================

	chatbot := api.Group("/chatbot", middleware.AuthRequired(deps.JWT, deps.Logger))

	chatbot.Post("/", middleware.ChatBurstLimit(deps.BurstPerMinute), handlers.Chat(deps.Chatbot, deps.Logger))
	chatbot.Get("/usage", handlers.GetUsage(deps.Chatbot, deps.Logger))
	chatbot.Delete("/sessions/:id", handlers.DiscardSession(deps.Chatbot, deps.Logger))

	// WebSocket dialogue
	chatbot.Get("/ws", handlers.RequireUpgrade(), handlers.DialogueSocket(deps.Chatbot, deps.Logger))
}
