package sale

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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type saleItemRequest struct {
	ProductID    *uint    `json:"product_id"`
	ServiceID    *uint    `json:"service_id"`
	Quantity     int      `json:"quantite"`
	PrixUnitaire *float64 `json:"prix_unitaire"`
}

type saleRequest struct {
	OrderID *uint             `json:"commande_id"`
	Items   []saleItemRequest `json:"articles"`
}

type saleItemResponse struct {
	ID           uint    `json:"id"`
	ProductID    *uint   `json:"product_id"`
	ServiceID    *uint   `json:"service_id"`
	Nom          string  `json:"nom"`
	Quantity     int     `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
	Total        float64 `json:"total"`
}

type saleResponse struct {
	ID        uint               `json:"id"`
	Numero    string             `json:"numero"`
	OrderID   *uint              `json:"commande_id"`
	UserID    *uint              `json:"user_id"`
	Montant   float64            `json:"montant"`
	Statut    string             `json:"statut"`
	Articles  []saleItemResponse `json:"articles"`
	CreatedAt time.Time          `json:"created_at"`
}

func toResponse(s *models.Sale) saleResponse {
	resp := saleResponse{
		ID:        s.ID,
		Numero:    s.Numero,
		OrderID:   s.OrderID,
		UserID:    s.UserID,
		Montant:   s.Amount,
		Statut:    string(s.Status),
		Articles:  []saleItemResponse{},
		CreatedAt: s.CreatedAt,
	}
	for _, it := range s.Items {
		resp.Articles = append(resp.Articles, saleItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ServiceID:    it.ServiceID,
			Nom:          it.Nom,
			Quantity:     it.Quantity,
			PrixUnitaire: it.PrixUnitaire,
			Total:        it.Total,
		})
	}
	return resp
}

func fetch(db *gorm.DB, id uint) (*models.Sale, error) {
	var s models.Sale
	if err := db.Preload("Items").First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GET /api/ventes?page=&limit=&statut=
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Sale{})
		if statut := strings.ToUpper(strings.TrimSpace(c.Query("statut"))); statut != "" {
			dbq = dbq.Where("status = ?", statut)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ventes inaccessibles")
		}

		var sales []models.Sale
		if err := dbq.Preload("Items").
			Order("created_at desc").
			Offset((page - 1) * limit).Limit(limit).
			Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ventes inaccessibles")
		}

		out := make([]saleResponse, 0, len(sales))
		for i := range sales {
			out = append(out, toResponse(&sales[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"ventes":      out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// GET /api/ventes/:id
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		s, err := fetch(database.DB, uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
		}
		return c.JSON(fiber.Map{"data": toResponse(s)})
	}
}

// POST /api/ventes
// Vente directe: les articles sont dénormalisés (nom et prix figés) et le
// stock des produits est débité dans la même transaction. Une vente
// rattachée à une commande ne touche pas au stock, la commande l'a déjà fait.
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if len(req.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Ajoutez au moins un article")
		}

		var userID *uint
		if uid := auth.CurrentUserID(c); uid != 0 {
			userID = &uid
		}

		var saleID uint
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if req.OrderID != nil {
				var o models.Order
				if err := tx.First(&o, *req.OrderID).Error; err != nil {
					return fiber.NewError(fiber.StatusNotFound, "Commande introuvable")
				}
			}

			s := models.Sale{
				Numero:  "VTE-" + strings.ToUpper(uuid.NewString()[:8]),
				OrderID: req.OrderID,
				UserID:  userID,
				Status:  models.SaleStatusCompleted,
			}
			if err := tx.Create(&s).Error; err != nil {
				return err
			}
			saleID = s.ID

			var amount float64
			for _, it := range req.Items {
				if it.Quantity <= 0 {
					return fiber.NewError(fiber.StatusBadRequest, "La quantité doit être supérieure à 0")
				}

				item := models.SaleItem{
					SaleID:    s.ID,
					ProductID: it.ProductID,
					ServiceID: it.ServiceID,
					Quantity:  it.Quantity,
				}

				switch {
				case it.ProductID != nil:
					var p models.Product
					if err := tx.First(&p, *it.ProductID).Error; err != nil {
						return fiber.NewError(fiber.StatusNotFound, "Produit introuvable")
					}
					item.Nom = p.Nom
					item.PrixUnitaire = p.PrixUnitaire
					if it.PrixUnitaire != nil && *it.PrixUnitaire > 0 {
						item.PrixUnitaire = *it.PrixUnitaire
					}
					if req.OrderID == nil {
						if it.Quantity > p.StockActuel {
							return fiber.NewError(fiber.StatusBadRequest,
								fmt.Sprintf("Stock insuffisant pour %s: maximum %d", p.Nom, p.StockActuel))
						}
						if err := tx.Model(&p).Update("stock_actuel", p.StockActuel-it.Quantity).Error; err != nil {
							return err
						}
						mov := models.StockMovement{
							ProductID: p.ID,
							Type:      models.StockMovementOut,
							Quantity:  it.Quantity,
							Motif:     "Vente " + s.Numero,
							UserID:    userID,
						}
						if err := tx.Create(&mov).Error; err != nil {
							return err
						}
					}
				case it.ServiceID != nil:
					var svc models.Service
					if err := tx.First(&svc, *it.ServiceID).Error; err != nil {
						return fiber.NewError(fiber.StatusNotFound, "Service introuvable")
					}
					item.Nom = svc.Nom
					item.PrixUnitaire = svc.PrixUnitaire
					if it.PrixUnitaire != nil && *it.PrixUnitaire > 0 {
						item.PrixUnitaire = *it.PrixUnitaire
					}
				default:
					return fiber.NewError(fiber.StatusBadRequest,
						"Chaque article doit référencer un produit ou un service")
				}

				item.Total = item.PrixUnitaire * float64(item.Quantity)
				amount += item.Total
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}

			return tx.Model(&s).Update("amount", amount).Error
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Vente non enregistrée")
		}

		s, err := fetch(database.DB, saleID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Vente inaccessible")
		}

		// Une vente directe consomme du stock: signaler les produits
		// passés sous le seuil.
		if s.OrderID == nil {
			for _, it := range s.Items {
				if it.ProductID == nil {
					continue
				}
				var p models.Product
				if database.DB.First(&p, *it.ProductID).Error == nil {
					product.NotifyIfLowStock(&p)
				}
			}
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "vente", EntityID: s.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Vente %s enregistrée (%.2f)", s.Numero, s.Amount),
			After:       toResponse(s),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(s)})
	}
}

type saleStatusRequest struct {
	Statut string `json:"statut"`
}

// PUT /api/ventes/:id
// Seul le statut est modifiable, les articles d'une vente sont figés.
// ANNULEE passe par le chemin d'annulation, qui recrédite le stock.
func UpdateSaleHandler() fiber.Handler {
	cancel := CancelSaleHandler()
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var req saleStatusRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		statut := models.SaleStatus(strings.ToUpper(strings.TrimSpace(req.Statut)))
		switch statut {
		case models.SaleStatusCancelled:
			return cancel(c)
		case models.SaleStatusPending, models.SaleStatusCompleted:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Statut inconnu (EN_COURS|TERMINEE|ANNULEE)")
		}

		var s models.Sale
		if err := database.DB.First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
		}
		if s.Status == models.SaleStatusCancelled {
			return fiber.NewError(fiber.StatusBadRequest, "Une vente annulée ne se réactive pas")
		}

		if err := database.DB.Model(&s).Update("status", statut).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Vente non mise à jour")
		}

		updated, err := fetch(database.DB, uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Vente inaccessible")
		}
		return c.JSON(fiber.Map{"data": toResponse(updated)})
	}
}

// POST /api/ventes/:id/annuler
// L'annulation recrédite le stock des ventes directes.
func CancelSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var s models.Sale
			if err := tx.Preload("Items").First(&s, id).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Vente introuvable")
			}
			if s.Status == models.SaleStatusCancelled {
				return fiber.NewError(fiber.StatusBadRequest, "Cette vente est déjà annulée")
			}

			var userID *uint
			if uid := auth.CurrentUserID(c); uid != 0 {
				userID = &uid
			}

			if s.OrderID == nil {
				for _, it := range s.Items {
					if it.ProductID == nil {
						continue
					}
					var p models.Product
					if err := tx.First(&p, *it.ProductID).Error; err != nil {
						continue
					}
					if err := tx.Model(&p).Update("stock_actuel", p.StockActuel+it.Quantity).Error; err != nil {
						return err
					}
					mov := models.StockMovement{
						ProductID: p.ID,
						Type:      models.StockMovementIn,
						Quantity:  it.Quantity,
						Motif:     "Vente " + s.Numero + " annulée",
						UserID:    userID,
					}
					if err := tx.Create(&mov).Error; err != nil {
						return err
					}
				}
			}

			return tx.Model(&s).Update("status", models.SaleStatusCancelled).Error
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Vente non annulée")
		}

		s, err := fetch(database.DB, uint(id))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Vente inaccessible")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "vente", EntityID: s.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Vente %s annulée", s.Numero),
			After:       toResponse(s),
		})

		return c.JSON(fiber.Map{"data": toResponse(s)})
	}
}
