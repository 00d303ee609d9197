package order

import (
	"fmt"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Endpoints ligne à ligne. Chaque opération est traduite en un plan d'une
// seule modification et passe par Apply, donc mêmes verrous, même gestion
// de stock et même recalcul de total que l'édition complète.

type addLineRequest struct {
	ID           uint     `json:"id"`
	Quantity     int      `json:"quantite"`
	PrixUnitaire *float64 `json:"prix_unitaire"`
}

type updateLineRequest struct {
	Quantity     int      `json:"quantite"`
	PrixUnitaire *float64 `json:"prix_unitaire"`
}

// POST /api/commandes/:id/produits
func AddProductLineHandler() fiber.Handler {
	return addLineHandler(true)
}

// POST /api/commandes/:id/services
func AddServiceLineHandler() fiber.Handler {
	return addLineHandler(false)
}

func addLineHandler(isProduct bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var req addLineRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if req.ID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Référence d'article manquante")
		}
		if req.Quantity <= 0 {
			return HTTPError(&ValidationError{Reason: "la quantité doit être supérieure à 0"})
		}

		o, err := Fetch(database.DB, uint(orderID))
		if err != nil {
			return HTTPError(err)
		}

		var unit float64
		plan := &Plan{OrderID: o.ID}
		if isProduct {
			var prod models.Product
			if err := database.DB.First(&prod, req.ID).Error; err != nil {
				return HTTPError(&NotFoundError{Entity: "produit", ID: req.ID})
			}
			unit = prod.PrixUnitaire
			if req.PrixUnitaire != nil && *req.PrixUnitaire > 0 {
				unit = *req.PrixUnitaire
			}
			if req.Quantity > prod.StockActuel {
				return HTTPError(&StockExceededError{ProductID: prod.ID, Requested: req.Quantity, Max: prod.StockActuel})
			}
			plan.AddProducts = append(plan.AddProducts, LineAdd{
				RefID:     req.ID,
				Quantity:  req.Quantity,
				UnitPrice: unit,
				Total:     unit * float64(req.Quantity),
			})
		} else {
			var svc models.Service
			if err := database.DB.First(&svc, req.ID).Error; err != nil {
				return HTTPError(&NotFoundError{Entity: "service", ID: req.ID})
			}
			unit = svc.PrixUnitaire
			if req.PrixUnitaire != nil && *req.PrixUnitaire > 0 {
				unit = *req.PrixUnitaire
			}
			plan.AddServices = append(plan.AddServices, LineAdd{
				RefID:     req.ID,
				Quantity:  req.Quantity,
				UnitPrice: unit,
				Total:     unit * float64(req.Quantity),
			})
		}

		updated, err := Apply(database.DB, plan, userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}
		notifyLowStock(updated)

		writeLineAudit(c, updated, models.AuditActionUpdate,
			fmt.Sprintf("Commande %s: %s", updated.Numero, plan.Summary()))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toOrderResponse(updated)})
	}
}

// PUT /api/commandes/:id/produits/:itemId
func UpdateProductLineHandler() fiber.Handler {
	return updateLineHandler(true)
}

// PUT /api/commandes/:id/services/:itemId
func UpdateServiceLineHandler() fiber.Handler {
	return updateLineHandler(false)
}

func updateLineHandler(isProduct bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		itemID, err := c.ParamsInt("itemId")
		if err != nil || itemID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant de ligne invalide")
		}

		var req updateLineRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if req.Quantity <= 0 {
			return HTTPError(&ValidationError{Reason: "la quantité doit être supérieure à 0"})
		}

		o, err := Fetch(database.DB, uint(orderID))
		if err != nil {
			return HTTPError(err)
		}

		plan := &Plan{OrderID: o.ID}
		if isProduct {
			line, ok := findProductLine(o, uint(itemID))
			if !ok {
				return HTTPError(&NotFoundError{Entity: "ligne", ID: uint(itemID)})
			}
			var prod models.Product
			if err := database.DB.First(&prod, line.ProductID).Error; err != nil {
				return HTTPError(&NotFoundError{Entity: "produit", ID: line.ProductID})
			}
			unit := unitPrice(prod.PrixUnitaire, derefOrZero(req.PrixUnitaire), line.LineTotal, line.Quantity)
			// plafond = stock disponible + quantité déjà réservée par cette ligne
			if max := prod.StockActuel + line.Quantity; req.Quantity > max {
				return HTTPError(&StockExceededError{ProductID: prod.ID, Requested: req.Quantity, Max: max})
			}
			plan.UpdateProducts = append(plan.UpdateProducts, LineUpdate{
				LineID:    line.ID,
				Quantity:  req.Quantity,
				UnitPrice: unit,
				Total:     unit * float64(req.Quantity),
			})
		} else {
			line, ok := findServiceLine(o, uint(itemID))
			if !ok {
				return HTTPError(&NotFoundError{Entity: "ligne", ID: uint(itemID)})
			}
			var svc models.Service
			if err := database.DB.First(&svc, line.ServiceID).Error; err != nil {
				return HTTPError(&NotFoundError{Entity: "service", ID: line.ServiceID})
			}
			unit := unitPrice(svc.PrixUnitaire, derefOrZero(req.PrixUnitaire), line.LineTotal, line.Quantity)
			plan.UpdateServices = append(plan.UpdateServices, LineUpdate{
				LineID:    line.ID,
				Quantity:  req.Quantity,
				UnitPrice: unit,
				Total:     unit * float64(req.Quantity),
			})
		}

		updated, err := Apply(database.DB, plan, userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}
		notifyLowStock(updated)

		writeLineAudit(c, updated, models.AuditActionUpdate,
			fmt.Sprintf("Commande %s: %s", updated.Numero, plan.Summary()))

		return c.JSON(fiber.Map{"data": toOrderResponse(updated)})
	}
}

// DELETE /api/commandes/:id/produits/:itemId
func DeleteProductLineHandler() fiber.Handler {
	return deleteLineHandler(true)
}

// DELETE /api/commandes/:id/services/:itemId
func DeleteServiceLineHandler() fiber.Handler {
	return deleteLineHandler(false)
}

func deleteLineHandler(isProduct bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := c.ParamsInt("id")
		if err != nil || orderID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		itemID, err := c.ParamsInt("itemId")
		if err != nil || itemID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant de ligne invalide")
		}

		o, err := Fetch(database.DB, uint(orderID))
		if err != nil {
			return HTTPError(err)
		}

		plan := &Plan{OrderID: o.ID}
		if isProduct {
			if _, ok := findProductLine(o, uint(itemID)); !ok {
				return HTTPError(&NotFoundError{Entity: "ligne", ID: uint(itemID)})
			}
			plan.DeleteProducts = append(plan.DeleteProducts, uint(itemID))
		} else {
			if _, ok := findServiceLine(o, uint(itemID)); !ok {
				return HTTPError(&NotFoundError{Entity: "ligne", ID: uint(itemID)})
			}
			plan.DeleteServices = append(plan.DeleteServices, uint(itemID))
		}

		updated, err := Apply(database.DB, plan, userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}

		writeLineAudit(c, updated, models.AuditActionUpdate,
			fmt.Sprintf("Commande %s: %s", updated.Numero, plan.Summary()))

		return c.JSON(fiber.Map{"data": toOrderResponse(updated)})
	}
}

func findProductLine(o *models.Order, lineID uint) (*models.OrderProduct, bool) {
	for i := range o.Products {
		if o.Products[i].ID == lineID {
			return &o.Products[i], true
		}
	}
	return nil, false
}

func findServiceLine(o *models.Order, lineID uint) (*models.OrderService, bool) {
	for i := range o.Services {
		if o.Services[i].ID == lineID {
			return &o.Services[i], true
		}
	}
	return nil, false
}

func derefOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func writeLineAudit(c *fiber.Ctx, o *models.Order, action models.AuditAction, desc string) {
	uid, name := auditActor(c)
	_ = audit.WriteLog(audit.LogOptions{
		UserID:      uid,
		UserName:    name,
		EntityType:  "commande",
		EntityID:    o.ID,
		Action:      action,
		Description: desc,
		After:       toOrderResponse(o),
	})
}
