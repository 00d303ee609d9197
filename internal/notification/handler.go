package notification

import (
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/notifications?limit=10
func ListNotificationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		if limit < 1 || limit > 100 {
			limit = 10
		}

		var notifs []models.Notification
		if err := database.DB.Order("created_at desc").Limit(limit).Find(&notifs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Notifications inaccessibles")
		}

		return c.JSON(fiber.Map{"data": notifs})
	}
}

// POST /api/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		res := database.DB.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Notification non mise à jour")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Notification introuvable")
		}

		return c.JSON(fiber.Map{"ok": true})
	}
}
