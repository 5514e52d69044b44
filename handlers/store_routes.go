// handlers/store_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"skill-progress-system/middleware"
	"skill-progress-system/models"
	"skill-progress-system/services"
)

func SetupStoreRoutes(app *fiber.App, storeService *services.StoreService, catalogService *services.CatalogService, db *gorm.DB) {
	// Public store listing — published items only
	app.Get("/store/items", func(c *fiber.Ctx) error {
		items, err := catalogService.ListPublishedItems()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load store items",
				"cause": err.Error(),
			})
		}
		return c.JSON(items)
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/store/items/:id/purchase", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		itemID := c.Params("id")

		var req struct {
			ExpectedPrice *int64 `json:"expected_price"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if req.ExpectedPrice == nil || *req.ExpectedPrice < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "expected_price is required and must be non-negative",
			})
		}

		result, err := storeService.Purchase(c.Context(), userID, itemID, *req.ExpectedPrice)
		if err != nil {
			return mapServiceError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/user/inventory", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var owned []models.ItemOwnership
		if err := db.Where("external_user_id = ?", userID).
			Order("acquired_at DESC").
			Find(&owned).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load inventory",
				"cause": err.Error(),
			})
		}

		itemIDs := make([]string, 0, len(owned))
		for _, o := range owned {
			itemIDs = append(itemIDs, o.StoreItemID)
		}
		items := map[string]models.StoreItem{}
		if len(itemIDs) > 0 {
			var rows []models.StoreItem
			if err := db.Where("id IN ?", itemIDs).Find(&rows).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to load items",
					"cause": err.Error(),
				})
			}
			for _, it := range rows {
				items[it.ID] = it
			}
		}

		response := make([]fiber.Map, 0, len(owned))
		for _, o := range owned {
			it := items[o.StoreItemID]
			response = append(response, fiber.Map{
				"ownership_id": o.ID,
				"item_id":      o.StoreItemID,
				"code":         it.Code,
				"name":         it.Name,
				"icon_url":     it.IconURL,
				"price_paid":   o.PricePaid,
				"acquired_at":  o.AcquiredAt,
			})
		}
		return c.JSON(response)
	})
}
