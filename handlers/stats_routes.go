// handlers/stats_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"skill-progress-system/middleware"
	"skill-progress-system/services"
)

func SetupStatsRoutes(app *fiber.App, statsService *services.StatsService, catalogService *services.CatalogService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, err := statsService.EnsureStatsRecord(c.Context(), userID)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(stats)
	})

	// Quiz completion is the only write path into the stat counters.
	secured.Post("/user/quiz/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			QuestionsAnswered int `json:"questions_answered"`
			CorrectAnswers    int `json:"correct_answers"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.QuestionsAnswered <= 0 || req.CorrectAnswers < 0 || req.CorrectAnswers > req.QuestionsAnswered {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "correct_answers must be between 0 and questions_answered",
			})
		}

		result, err := statsService.RecordQuizCompletion(c.Context(), userID, req.QuestionsAnswered, req.CorrectAnswers)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(result)
	})

	// Admin endpoints
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/store/items", catalogService.CreateStoreItem)
	admin.Patch("/store/items/:id/status", catalogService.UpdateStoreItemStatus)
	admin.Post("/store/items/:id/icon", catalogService.UploadItemIcon)
	admin.Post("/achievements/:id/icon", catalogService.UploadAchievementIcon)
}
