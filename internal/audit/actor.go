package audit

import (
	"strings"

	"realtech-backend/internal/auth"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Actor résout l'utilisateur courant (id + nom affiché) pour le journal.
func Actor(c *fiber.Ctx) (uint, string) {
	uid := auth.CurrentUserID(c)
	if uid == 0 {
		return 0, ""
	}
	var u models.User
	if err := database.DB.Select("nom", "prenom").First(&u, uid).Error; err != nil {
		return uid, ""
	}
	return uid, strings.TrimSpace(u.Prenom + " " + u.Nom)
}
