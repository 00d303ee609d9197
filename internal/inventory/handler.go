package inventory

import (
	"fmt"
	"math"
	"strings"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/auth"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
	"realtech-backend/internal/product"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type movementRequest struct {
	ProductID uint   `json:"product_id"`
	Type      string `json:"type"`
	Quantity  int    `json:"quantite"`
	Motif     string `json:"motif"`
}

type movementResponse struct {
	ID         uint      `json:"id"`
	ProductID  uint      `json:"product_id"`
	ProductNom string    `json:"product_nom,omitempty"`
	Type       string    `json:"type"`
	Quantity   int       `json:"quantite"`
	Motif      string    `json:"motif"`
	OrderID    *uint     `json:"commande_id"`
	UserID     *uint     `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(m *models.StockMovement) movementResponse {
	return movementResponse{
		ID:         m.ID,
		ProductID:  m.ProductID,
		ProductNom: m.Product.Nom,
		Type:       string(m.Type),
		Quantity:   m.Quantity,
		Motif:      m.Motif,
		OrderID:    m.OrderID,
		UserID:     m.UserID,
		CreatedAt:  m.CreatedAt,
	}
}

// GET /api/inventaire?page=&limit=&product_id=&type=&min_date=&max_date=
func ListMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		dbq := database.DB.Model(&models.StockMovement{})
		if productID := c.QueryInt("product_id", 0); productID > 0 {
			dbq = dbq.Where("product_id = ?", productID)
		}
		if typ := strings.ToUpper(strings.TrimSpace(c.Query("type"))); typ != "" {
			dbq = dbq.Where("type = ?", typ)
		}
		if minDate := c.Query("min_date"); minDate != "" {
			if t, err := time.Parse("2006-01-02", minDate); err == nil {
				dbq = dbq.Where("created_at >= ?", t)
			}
		}
		if maxDate := c.Query("max_date"); maxDate != "" {
			if t, err := time.Parse("2006-01-02", maxDate); err == nil {
				dbq = dbq.Where("created_at < ?", t.AddDate(0, 0, 1))
			}
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mouvements inaccessibles")
		}

		var movements []models.StockMovement
		if err := dbq.Preload("Product").
			Order("created_at desc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mouvements inaccessibles")
		}

		out := make([]movementResponse, 0, len(movements))
		for i := range movements {
			out = append(out, toResponse(&movements[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"mouvements":  out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// POST /api/inventaire
// Mouvement manuel. ENTREE ajoute, SORTIE retire (refusé au-delà du stock),
// AJUSTEMENT fixe le stock à la valeur donnée, le mouvement trace l'écart.
func CreateMovementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req movementRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if req.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Produit obligatoire")
		}

		typ := models.StockMovementType(strings.ToUpper(strings.TrimSpace(req.Type)))
		switch typ {
		case models.StockMovementIn, models.StockMovementOut:
			if req.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "La quantité doit être supérieure à 0")
			}
		case models.StockMovementAdjustment:
			if req.Quantity < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Le stock cible ne peut pas être négatif")
			}
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Type inconnu (ENTREE|SORTIE|AJUSTEMENT)")
		}

		var userID *uint
		if uid := auth.CurrentUserID(c); uid != 0 {
			userID = &uid
		}

		var movementID uint
		var updated models.Product
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			var p models.Product
			if err := tx.First(&p, req.ProductID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
			}

			newStock := p.StockActuel
			recorded := req.Quantity
			switch typ {
			case models.StockMovementIn:
				newStock += req.Quantity
			case models.StockMovementOut:
				if req.Quantity > p.StockActuel {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Stock insuffisant pour %s: maximum %d", p.Nom, p.StockActuel))
				}
				newStock -= req.Quantity
			case models.StockMovementAdjustment:
				newStock = req.Quantity
				recorded = newStock - p.StockActuel
				if recorded < 0 {
					recorded = -recorded
				}
			}

			if err := tx.Model(&p).Update("stock_actuel", newStock).Error; err != nil {
				return err
			}
			p.StockActuel = newStock
			updated = p

			mov := models.StockMovement{
				ProductID: p.ID,
				Type:      typ,
				Quantity:  recorded,
				Motif:     strings.TrimSpace(req.Motif),
				UserID:    userID,
			}
			if err := tx.Create(&mov).Error; err != nil {
				return err
			}
			movementID = mov.ID
			return nil
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Mouvement non enregistré")
		}

		product.NotifyIfLowStock(&updated)

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "inventaire", EntityID: movementID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Mouvement %s de %d sur %s", typ, req.Quantity, updated.Nom),
		})

		var mov models.StockMovement
		if err := database.DB.Preload("Product").First(&mov, movementID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mouvement inaccessible")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&mov)})
	}
}
