package api

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/mangatrack/mangatrack-backend/internal/config"
	"github.com/mangatrack/mangatrack-backend/internal/services"
)

// NewApp creates the fiber app with the common middleware stack
func NewApp(cfg config.ServerConfig, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "MangaTrack Backend",
		ErrorHandler:          errorHandler(log),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: log.WriterLevel(logrus.InfoLevel),
	}))

	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		AllowCredentials: origins != "*",
	}))

	return app
}

// errorHandler answers unhandled errors without leaking internals
func errorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"message": fe.Message,
			})
		}

		log.WithError(err).WithFields(logrus.Fields{
			"path":       c.Path(),
			"request_id": c.Locals("requestid"),
		}).Error("Unhandled request error")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": services.FailureMessage,
		})
	}
}
