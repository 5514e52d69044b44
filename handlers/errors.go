// handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"skill-progress-system/services"
)

// mapServiceError translates service failure signals into status codes and
// actionable client messages.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "item not found",
		})
	case errors.Is(err, services.ErrPriceMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "price has changed, refresh the store and try again",
		})
	case errors.Is(err, services.ErrAlreadyOwned):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "you already own this item",
		})
	case errors.Is(err, services.ErrInsufficientFunds):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error": "not enough reward points",
		})
	case errors.Is(err, services.ErrWriteConflict),
		errors.Is(err, services.ErrCatalogUnavailable),
		errors.Is(err, services.ErrStatsUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "temporarily unavailable, please retry",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
			"cause": err.Error(),
		})
	}
}
