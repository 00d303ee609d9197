package order

import (
	"fmt"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
	"realtech-backend/internal/notification"

	"github.com/gofiber/fiber/v2"
)

type payRequest struct {
	Montant        float64 `json:"montant"`
	ModePaiement   string  `json:"mode_paiement"`
	StatutPaiement string  `json:"statut_paiement"`
}

type paymentResponse struct {
	ID        uint      `json:"id"`
	OrderID   uint      `json:"commande_id"`
	Montant   float64   `json:"montant"`
	Mode      string    `json:"mode_paiement"`
	CreatedAt time.Time `json:"created_at"`
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Montant:   p.Amount,
		Mode:      string(p.Mode),
		CreatedAt: p.CreatedAt,
	}
}

// POST /api/commandes/:id/paiement
func PayOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var req payRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		o, payment, err := ApplyPayment(database.DB, uint(id), req.Montant,
			models.PaymentMode(req.ModePaiement), models.PaymentStatus(req.StatutPaiement))
		if err != nil {
			return HTTPError(err)
		}

		uid, name := auditActor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserName:    name,
			EntityType:  "paiement",
			EntityID:    payment.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Paiement de %.2f sur la commande %s", payment.Amount, o.Numero),
			After:       toPaymentResponse(payment),
		})
		notification.Notify(models.NotificationPayment,
			fmt.Sprintf("Paiement de %.2f reçu sur la commande %s", payment.Amount, o.Numero), &o.ID)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"data": fiber.Map{
				"commande": toOrderResponse(o),
				"paiement": toPaymentResponse(payment),
			},
		})
	}
}

// GET /api/commandes/:id/paiements
func ListPaymentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		if _, err := Fetch(database.DB, uint(id)); err != nil {
			return HTTPError(err)
		}

		var payments []models.Payment
		if err := database.DB.
			Where("order_id = ?", id).
			Order("created_at asc").
			Find(&payments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paiements inaccessibles")
		}

		out := make([]paymentResponse, 0, len(payments))
		for i := range payments {
			out = append(out, toPaymentResponse(&payments[i]))
		}

		return c.JSON(fiber.Map{"data": out})
	}
}
