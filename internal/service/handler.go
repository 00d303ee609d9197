package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type serviceRequest struct {
	Nom          string   `json:"nom"`
	Description  string   `json:"description"`
	PrixUnitaire *float64 `json:"prix_unitaire"`
	Actif        *bool    `json:"actif"`
}

type serviceResponse struct {
	ID           uint      `json:"id"`
	Nom          string    `json:"nom"`
	Description  string    `json:"description"`
	PrixUnitaire float64   `json:"prix_unitaire"`
	Actif        bool      `json:"actif"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(s *models.Service) serviceResponse {
	return serviceResponse{
		ID:           s.ID,
		Nom:          s.Nom,
		Description:  s.Description,
		PrixUnitaire: s.PrixUnitaire,
		Actif:        s.Actif,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// GET /api/services?page=&limit=&search=
func ListServicesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Service{}).Where("deleted_at IS NULL")
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("nom ILIKE ?", "%"+search+"%")
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Services inaccessibles")
		}

		var services []models.Service
		if err := dbq.Order("nom asc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&services).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Services inaccessibles")
		}

		out := make([]serviceResponse, 0, len(services))
		for i := range services {
			out = append(out, toResponse(&services[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"services":    out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// GET /api/services/:id
func GetServiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		var s models.Service
		if err := database.DB.Where("deleted_at IS NULL").First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Service introuvable")
		}
		return c.JSON(fiber.Map{"data": toResponse(&s)})
	}
}

// POST /api/services
func CreateServiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req serviceRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}
		if req.PrixUnitaire == nil || *req.PrixUnitaire < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le prix unitaire doit être positif")
		}

		s := models.Service{
			Nom:          strings.TrimSpace(req.Nom),
			Description:  strings.TrimSpace(req.Description),
			PrixUnitaire: *req.PrixUnitaire,
			Actif:        true,
		}
		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Service non enregistré")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "service", EntityID: s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Création du service %s", s.Nom),
			After:       toResponse(&s),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&s)})
	}
}

// PUT /api/services/:id
func UpdateServiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var s models.Service
		if err := database.DB.Where("deleted_at IS NULL").First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Service introuvable")
		}
		before := toResponse(&s)

		var req serviceRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}
		if req.PrixUnitaire != nil && *req.PrixUnitaire < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le prix unitaire doit être positif")
		}

		s.Nom = strings.TrimSpace(req.Nom)
		s.Description = strings.TrimSpace(req.Description)
		if req.PrixUnitaire != nil {
			s.PrixUnitaire = *req.PrixUnitaire
		}
		if req.Actif != nil {
			s.Actif = *req.Actif
		}
		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Service non mis à jour")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "service", EntityID: s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Modification du service %s", s.Nom),
			Before:      before,
			After:       toResponse(&s),
		})

		return c.JSON(fiber.Map{"data": toResponse(&s)})
	}
}

// DELETE /api/services/:id — suppression douce.
func DeleteServiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var s models.Service
		if err := database.DB.Where("deleted_at IS NULL").First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Service introuvable")
		}

		now := time.Now()
		if err := database.DB.Model(&s).Updates(map[string]interface{}{
			"deleted_at": &now,
			"actif":      false,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Service non supprimé")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "service", EntityID: s.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Suppression du service %s", s.Nom),
			Before:      toResponse(&s),
		})

		return c.JSON(fiber.Map{"data": fiber.Map{"id": s.ID}})
	}
}
