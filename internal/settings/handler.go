package settings

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"realtech-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

// GET /api/settings/company
func GetCompanyHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		company, err := LoadCompany(cfg.UploadPath)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paramètres inaccessibles")
		}
		return c.JSON(fiber.Map{"data": company})
	}
}

// PUT /api/settings/company
func UpdateCompanyHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var company Company
		if err := c.BodyParser(&company); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(company.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom de l'entreprise est obligatoire")
		}
		if company.TauxTaxe < 0 || company.TauxTaxe > 100 {
			return fiber.NewError(fiber.StatusBadRequest, "Le taux de taxe doit être entre 0 et 100")
		}
		if company.Devise == "" {
			company.Devise = "FCFA"
		}
		if err := SaveCompany(cfg.UploadPath, company); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paramètres non enregistrés")
		}
		return c.JSON(fiber.Map{"data": company})
	}
}

type logoRequest struct {
	// Image encodée en base64, avec ou sans préfixe data-URL
	Image string `json:"image"`
}

// POST /api/settings/logo
// Le logo est toujours réécrit en logo.png; un éventuel logo.jpg hérité
// est supprimé pour que la sonde ne retombe pas dessus.
func UploadLogoHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req logoRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		payload := req.Image
		if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
			payload = payload[idx+1:]
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Image invalide (base64 attendu)")
		}
		if len(raw) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Image vide")
		}
		if len(raw) > 2<<20 {
			return fiber.NewError(fiber.StatusBadRequest, "Image trop volumineuse (2 Mo maximum)")
		}

		dest := filepath.Join(cfg.UploadPath, "logo.png")
		tmp := dest + ".tmp"
		if err := os.WriteFile(tmp, raw, 0o644); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Logo non enregistré")
		}
		if err := os.Rename(tmp, dest); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Logo non enregistré")
		}
		_ = os.Remove(filepath.Join(cfg.UploadPath, "logo.jpg"))

		return c.JSON(fiber.Map{"data": fiber.Map{"logo": "logo.png"}})
	}
}
