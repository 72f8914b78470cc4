package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/veritas-lms/veritas-go-api/internal/config"
	"github.com/veritas-lms/veritas-go-api/internal/handler"
	"github.com/veritas-lms/veritas-go-api/internal/middleware"
	"github.com/veritas-lms/veritas-go-api/internal/models"
	"github.com/veritas-lms/veritas-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PlagiarismHandler   *handler.PlagiarismHandler
	SubmissionHandler   *handler.SubmissionHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		submissionGroup := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissionGroup)
	}

	if deps.PlagiarismHandler != nil {
		plagiarism := api.Group("/plagiarism", jwtMiddleware)

		// Detection runs for any authenticated caller; the dashboard and
		// review decisions are teacher-only. Checks are rate limited since
		// each one may call the embedding provider.
		plagiarism.Post("/check", middleware.RateLimit("plagiarism-check", 10, time.Minute), deps.PlagiarismHandler.Check)
		plagiarism.Get("/flagged", middleware.RequireRole(models.RoleTeacher), deps.PlagiarismHandler.Flagged)
		plagiarism.Post("/submissions/:id/review", middleware.RequireRole(models.RoleTeacher), deps.PlagiarismHandler.Review)
	}

	if deps.NotificationHandler != nil {
		notificationGroup := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notificationGroup)
	}
}
