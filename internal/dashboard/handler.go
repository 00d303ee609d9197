package dashboard

import (
	"time"

	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/dashboard/stats
// Chiffres du mois courant + compteurs globaux, en quelques agrégats SQL.
func StatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		db := database.DB

		var clientsActifs, produits, commandesMois, tachesEnCours, stockBas int64
		db.Model(&models.Client{}).Where("deleted_at IS NULL AND actif = ?", true).Count(&clientsActifs)
		db.Model(&models.Product{}).Where("deleted_at IS NULL").Count(&produits)
		db.Model(&models.Order{}).
			Where("deleted_at IS NULL AND created_at >= ?", monthStart).
			Count(&commandesMois)
		db.Model(&models.Task{}).
			Where("status IN ?", []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress}).
			Count(&tachesEnCours)
		db.Model(&models.Product{}).
			Where("deleted_at IS NULL AND stock_actuel < ?", 5).
			Count(&stockBas)

		var caMois float64
		db.Model(&models.Payment{}).
			Where("created_at >= ?", monthStart).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&caMois)

		var resteEncaisser float64
		db.Model(&models.Order{}).
			Where("deleted_at IS NULL").
			Select("COALESCE(SUM(GREATEST(total - amount_paid, 0)), 0)").
			Scan(&resteEncaisser)

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"clients_actifs":     clientsActifs,
				"produits":           produits,
				"commandes_mois":     commandesMois,
				"ca_mois":            caMois,
				"reste_encaisser":    resteEncaisser,
				"taches_en_cours":    tachesEnCours,
				"produits_stock_bas": stockBas,
			},
		})
	}
}

type topProductRow struct {
	ProductID uint    `json:"product_id"`
	Nom       string  `json:"nom"`
	Quantite  int     `json:"quantite"`
	Total     float64 `json:"total"`
}

// GET /api/dashboard/top-products?limit=5
// Classement par quantité vendue sur les lignes de commandes non supprimées.
func TopProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 5)
		if limit < 1 || limit > 50 {
			limit = 5
		}

		var rows []topProductRow
		err := database.DB.Model(&models.OrderProduct{}).
			Select("order_products.product_id, products.nom, SUM(order_products.quantity) AS quantite, SUM(order_products.line_total) AS total").
			Joins("JOIN products ON products.id = order_products.product_id").
			Joins("JOIN orders ON orders.id = order_products.order_id AND orders.deleted_at IS NULL").
			Group("order_products.product_id, products.nom").
			Order("quantite DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Classement inaccessible")
		}

		return c.JSON(fiber.Map{"data": rows})
	}
}

// GET /api/dashboard/recent-activity?limit=10
// Dernières entrées du journal d'audit, tous types confondus.
func RecentActivityHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		if limit < 1 || limit > 50 {
			limit = 10
		}

		var logs []models.AuditLog
		if err := database.DB.
			Order("created_at desc").
			Limit(limit).
			Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Activité inaccessible")
		}

		type activity struct {
			ID          uint      `json:"id"`
			EntityType  string    `json:"entity_type"`
			EntityID    uint      `json:"entity_id"`
			Action      string    `json:"action"`
			Description string    `json:"description"`
			UserName    string    `json:"user_name"`
			CreatedAt   time.Time `json:"created_at"`
		}

		out := make([]activity, 0, len(logs))
		for _, l := range logs {
			out = append(out, activity{
				ID:          l.ID,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      string(l.Action),
				Description: l.Description,
				UserName:    l.UserName,
				CreatedAt:   l.CreatedAt,
			})
		}

		return c.JSON(fiber.Map{"data": out})
	}
}
