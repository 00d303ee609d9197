package client

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

type clientRequest struct {
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`
	Actif     *bool  `json:"actif"`
}

type clientResponse struct {
	ID        uint      `json:"id"`
	Nom       string    `json:"nom"`
	Prenom    string    `json:"prenom"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone"`
	Adresse   string    `json:"adresse"`
	Actif     bool      `json:"actif"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(cl *models.Client) clientResponse {
	return clientResponse{
		ID:        cl.ID,
		Nom:       cl.Nom,
		Prenom:    cl.Prenom,
		Email:     cl.Email,
		Telephone: cl.Telephone,
		Adresse:   cl.Adresse,
		Actif:     cl.Actif,
		CreatedAt: cl.CreatedAt,
		UpdatedAt: cl.UpdatedAt,
	}
}

// GET /api/clients?page=&limit=&search=
func ListClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Client{}).Where("deleted_at IS NULL")
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			dbq = dbq.Where("nom ILIKE ? OR prenom ILIKE ? OR email ILIKE ? OR telephone ILIKE ?",
				like, like, like, like)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Clients inaccessibles")
		}

		var clients []models.Client
		if err := dbq.Order("nom asc, prenom asc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Clients inaccessibles")
		}

		out := make([]clientResponse, 0, len(clients))
		for i := range clients {
			out = append(out, toResponse(&clients[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"clients":     out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// GET /api/clients/:id
func GetClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		var cl models.Client
		if err := database.DB.Where("deleted_at IS NULL").First(&cl, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Client introuvable")
		}
		return c.JSON(fiber.Map{"data": toResponse(&cl)})
	}
}

// POST /api/clients
func CreateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req clientRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}

		cl := models.Client{
			Nom:       strings.TrimSpace(req.Nom),
			Prenom:    strings.TrimSpace(req.Prenom),
			Email:     strings.TrimSpace(req.Email),
			Telephone: strings.TrimSpace(req.Telephone),
			Adresse:   strings.TrimSpace(req.Adresse),
			Actif:     true,
		}
		if err := database.DB.Create(&cl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non enregistré")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "client", EntityID: cl.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Création du client %s %s", cl.Prenom, cl.Nom),
			After:       toResponse(&cl),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&cl)})
	}
}

// PUT /api/clients/:id
func UpdateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var cl models.Client
		if err := database.DB.Where("deleted_at IS NULL").First(&cl, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Client introuvable")
		}
		before := toResponse(&cl)

		var req clientRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}

		cl.Nom = strings.TrimSpace(req.Nom)
		cl.Prenom = strings.TrimSpace(req.Prenom)
		cl.Email = strings.TrimSpace(req.Email)
		cl.Telephone = strings.TrimSpace(req.Telephone)
		cl.Adresse = strings.TrimSpace(req.Adresse)
		if req.Actif != nil {
			cl.Actif = *req.Actif
		}
		if err := database.DB.Save(&cl).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non mis à jour")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "client", EntityID: cl.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Modification du client %s %s", cl.Prenom, cl.Nom),
			Before:      before,
			After:       toResponse(&cl),
		})

		return c.JSON(fiber.Map{"data": toResponse(&cl)})
	}
}

// DELETE /api/clients/:id — suppression douce, les commandes existantes
// gardent leur référence.
func DeleteClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var cl models.Client
		if err := database.DB.Where("deleted_at IS NULL").First(&cl, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Client introuvable")
		}

		now := time.Now()
		if err := database.DB.Model(&cl).Updates(map[string]interface{}{
			"deleted_at": &now,
			"actif":      false,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Client non supprimé")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "client", EntityID: cl.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Suppression du client %s %s", cl.Prenom, cl.Nom),
			Before:      toResponse(&cl),
		})

		return c.JSON(fiber.Map{"data": fiber.Map{"id": cl.ID}})
	}
}
