// handlers/achievement_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"skill-progress-system/middleware"
	"skill-progress-system/models"
	"skill-progress-system/services"
)

func SetupAchievementRoutes(app *fiber.App, achievementService *services.AchievementService, catalogService *services.CatalogService) {
	// Public catalog view — no user context required
	app.Get("/achievements/catalog", func(c *fiber.Ctx) error {
		types, err := catalogService.ListAchievementTypes()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievement catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(types)
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Backfills missing records and recomputes progress in one call, so the
	// client always sees a row per catalog entry with a fresh percentage.
	secured.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		records, err := achievementService.Recompute(c.Context(), userID)
		if err != nil {
			return mapServiceError(c, err)
		}

		types, err := catalogService.ListAchievementTypes()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievement catalog",
				"cause": err.Error(),
			})
		}
		byID := make(map[string]models.AchievementType, len(types))
		for _, t := range types {
			byID[t.ID] = t
		}

		response := make([]fiber.Map, 0, len(records))
		for _, rec := range records {
			def := byID[rec.AchievementTypeID]
			response = append(response, fiber.Map{
				"id":               rec.ID,
				"code":             def.Code,
				"name":             def.Name,
				"description":      def.Description,
				"icon_url":         def.IconURL,
				"kind":             def.Kind,
				"target":           def.Target,
				"status":           rec.Status,
				"progress_percent": rec.ProgressPercent,
				"completed_at":     rec.CompletedAt,
			})
		}
		return c.JSON(response)
	})
}
