package product

import (
	"fmt"
	"math"
	"strings"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
	"realtech-backend/internal/notification"

	"github.com/gofiber/fiber/v2"
)

// lowStockThreshold: en dessous, une notification stock_bas est émise.
const lowStockThreshold = 5

type productRequest struct {
	Nom          string   `json:"nom"`
	Code         string   `json:"code"`
	Description  string   `json:"description"`
	PrixUnitaire *float64 `json:"prix_unitaire"`
	StockActuel  *int     `json:"stock_actuel"`
	Actif        *bool    `json:"actif"`
}

type productResponse struct {
	ID           uint      `json:"id"`
	Nom          string    `json:"nom"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	PrixUnitaire float64   `json:"prix_unitaire"`
	StockActuel  int       `json:"stock_actuel"`
	StockBas     bool      `json:"stock_bas"`
	Actif        bool      `json:"actif"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(p *models.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Nom:          p.Nom,
		Code:         p.Code,
		Description:  p.Description,
		PrixUnitaire: p.PrixUnitaire,
		StockActuel:  p.StockActuel,
		StockBas:     p.StockActuel < lowStockThreshold,
		Actif:        p.Actif,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// GET /api/produits?page=&limit=&search=&stock_bas=true
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Product{}).Where("deleted_at IS NULL")
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			dbq = dbq.Where("nom ILIKE ? OR code ILIKE ?", like, like)
		}
		if c.QueryBool("stock_bas", false) {
			dbq = dbq.Where("stock_actuel < ?", lowStockThreshold)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produits inaccessibles")
		}

		var products []models.Product
		if err := dbq.Order("nom asc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produits inaccessibles")
		}

		out := make([]productResponse, 0, len(products))
		for i := range products {
			out = append(out, toResponse(&products[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"produits":    out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// GET /api/produits/:id
func GetProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}
		return c.JSON(fiber.Map{"data": toResponse(&p)})
	}
}

// POST /api/produits
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req productRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}
		if req.PrixUnitaire == nil || *req.PrixUnitaire < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le prix unitaire doit être positif")
		}

		p := models.Product{
			Nom:          strings.TrimSpace(req.Nom),
			Code:         strings.TrimSpace(req.Code),
			Description:  strings.TrimSpace(req.Description),
			PrixUnitaire: *req.PrixUnitaire,
			Actif:        true,
		}
		if req.StockActuel != nil {
			if *req.StockActuel < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Le stock ne peut pas être négatif")
			}
			p.StockActuel = *req.StockActuel
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non enregistré")
		}

		// Stock initial tracé comme une entrée
		if p.StockActuel > 0 {
			uid := auditUserID(c)
			mov := models.StockMovement{
				ProductID: p.ID,
				Type:      models.StockMovementIn,
				Quantity:  p.StockActuel,
				Motif:     "Stock initial",
				UserID:    uid,
			}
			_ = database.DB.Create(&mov).Error
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "produit", EntityID: p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Création du produit %s", p.Nom),
			After:       toResponse(&p),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&p)})
	}
}

// PUT /api/produits/:id
// Le stock ne se modifie pas ici: il passe par les mouvements d'inventaire
// ou par les lignes de commandes.
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}
		before := toResponse(&p)

		var req productRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le nom est obligatoire")
		}
		if req.PrixUnitaire != nil && *req.PrixUnitaire < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Le prix unitaire doit être positif")
		}

		p.Nom = strings.TrimSpace(req.Nom)
		p.Code = strings.TrimSpace(req.Code)
		p.Description = strings.TrimSpace(req.Description)
		if req.PrixUnitaire != nil {
			p.PrixUnitaire = *req.PrixUnitaire
		}
		if req.Actif != nil {
			p.Actif = *req.Actif
		}
		if err := database.DB.Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non mis à jour")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "produit", EntityID: p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Modification du produit %s", p.Nom),
			Before:      before,
			After:       toResponse(&p),
		})

		return c.JSON(fiber.Map{"data": toResponse(&p)})
	}
}

// DELETE /api/produits/:id — suppression douce.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var p models.Product
		if err := database.DB.Where("deleted_at IS NULL").First(&p, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
		}

		now := time.Now()
		if err := database.DB.Model(&p).Updates(map[string]interface{}{
			"deleted_at": &now,
			"actif":      false,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Produit non supprimé")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "produit", EntityID: p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Suppression du produit %s", p.Nom),
			Before:      toResponse(&p),
		})

		return c.JSON(fiber.Map{"data": fiber.Map{"id": p.ID}})
	}
}

// NotifyIfLowStock émet une notification quand le produit passe sous le seuil.
func NotifyIfLowStock(p *models.Product) {
	if p.StockActuel < lowStockThreshold {
		notification.Notify(models.NotificationLowStock,
			fmt.Sprintf("Stock bas pour %s: %d restant(s)", p.Nom, p.StockActuel), &p.ID)
	}
}

func auditUserID(c *fiber.Ctx) *uint {
	uid, _ := audit.Actor(c)
	if uid == 0 {
		return nil
	}
	return &uid
}
