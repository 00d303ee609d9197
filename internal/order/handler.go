package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/auth"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
	"realtech-backend/internal/notification"
	"realtech-backend/internal/product"

	"github.com/gofiber/fiber/v2"
)

// sortColumns: liste blanche des tris acceptés, clé d'API -> colonne SQL.
// Tout autre champ retombe sur la date de création.
var sortColumns = map[string]string{
	"id":        "id",
	"code":      "code",
	"numero":    "numero",
	"total_cmd": "total",
	"statut":    "status",
	"createdat": "created_at",
	"updatedat": "updated_at",
}

type lineResponse struct {
	ID           uint    `json:"id"`
	RefID        uint    `json:"ref_id"`
	Nom          string  `json:"nom"`
	Quantity     int     `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
	Total        float64 `json:"total"`
}

type orderResponse struct {
	ID           uint           `json:"id"`
	Code         string         `json:"code"`
	Numero       string         `json:"numero"`
	ClientID     *uint          `json:"client_id"`
	ClientNom    string         `json:"client_nom,omitempty"`
	Total        float64        `json:"total_cmd"`
	Statut       string         `json:"statut"`
	StatutPay    string         `json:"statut_paiement"`
	MontantPaye  float64        `json:"montant_paye"`
	Reste        float64        `json:"reste"`
	DateCommande time.Time      `json:"date_commande"`
	Actif        bool           `json:"actif"`
	Supprimee    bool           `json:"supprimee"`
	Produits     []lineResponse `json:"produits"`
	Services     []lineResponse `json:"services"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toOrderResponse(o *models.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		Code:         o.Code,
		Numero:       o.Numero,
		ClientID:     o.ClientID,
		Total:        o.Total,
		Statut:       string(o.Status),
		StatutPay:    string(o.PaymentStatus),
		MontantPaye:  o.AmountPaid,
		Reste:        o.Outstanding(),
		DateCommande: o.OrderDate,
		Actif:        o.Actif,
		Supprimee:    o.DeletedAt != nil,
		Produits:     []lineResponse{},
		Services:     []lineResponse{},
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	if o.Client != nil {
		resp.ClientNom = strings.TrimSpace(o.Client.Prenom + " " + o.Client.Nom)
	}
	for _, l := range o.Products {
		unit := 0.0
		if l.Quantity > 0 {
			unit = l.LineTotal / float64(l.Quantity)
		}
		resp.Produits = append(resp.Produits, lineResponse{
			ID:           l.ID,
			RefID:        l.ProductID,
			Nom:          l.Product.Nom,
			Quantity:     l.Quantity,
			PrixUnitaire: unit,
			Total:        l.LineTotal,
		})
	}
	for _, l := range o.Services {
		unit := 0.0
		if l.Quantity > 0 {
			unit = l.LineTotal / float64(l.Quantity)
		}
		resp.Services = append(resp.Services, lineResponse{
			ID:           l.ID,
			RefID:        l.ServiceID,
			Nom:          l.Service.Nom,
			Quantity:     l.Quantity,
			PrixUnitaire: unit,
			Total:        l.LineTotal,
		})
	}
	return resp
}

func auditActor(c *fiber.Ctx) (uint, string) {
	return audit.Actor(c)
}

func userIDPtr(c *fiber.Ctx) *uint {
	uid := auth.CurrentUserID(c)
	if uid == 0 {
		return nil
	}
	return &uid
}

// notifyLowStock signale les produits passés sous le seuil après un débit
// de stock. La commande doit sortir de Fetch, avec ses produits préchargés.
func notifyLowStock(o *models.Order) {
	for i := range o.Products {
		product.NotifyIfLowStock(&o.Products[i].Product)
	}
}

// GET /api/commandes
// Pagination, recherche plein-texte sur code/numero, filtres statut, client,
// bornes de dates, tri sur liste blanche.
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Order{})

		if !c.QueryBool("include_deleted", false) {
			dbq = dbq.Where("deleted_at IS NULL")
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + search + "%"
			dbq = dbq.Where("code ILIKE ? OR numero ILIKE ?", like, like)
		}
		if statut := strings.TrimSpace(c.Query("statut")); statut != "" {
			dbq = dbq.Where("status = ?", strings.ToUpper(statut))
		}
		if clientID := c.QueryInt("client_id", 0); clientID > 0 {
			dbq = dbq.Where("client_id = ?", clientID)
		}
		if minDate := c.Query("min_date"); minDate != "" {
			if t, err := time.Parse("2006-01-02", minDate); err == nil {
				dbq = dbq.Where("order_date >= ?", t)
			}
		}
		if maxDate := c.Query("max_date"); maxDate != "" {
			if t, err := time.Parse("2006-01-02", maxDate); err == nil {
				dbq = dbq.Where("order_date < ?", t.AddDate(0, 0, 1))
			}
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Commandes inaccessibles")
		}

		col, ok := sortColumns[strings.ToLower(c.Query("sort", "createdat"))]
		if !ok {
			col = "created_at"
		}
		dir := "desc"
		if strings.EqualFold(c.Query("dir"), "asc") {
			dir = "asc"
		}

		var orders []models.Order
		err := dbq.
			Preload("Client").
			Preload("Products.Product").
			Preload("Services.Service").
			Order(col + " " + dir).
			Order("id " + dir). // départage les dates identiques
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&orders).Error
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Commandes inaccessibles")
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, toOrderResponse(&orders[i]))
		}

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"commandes":   out,
				"total":       total,
				"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
				"currentPage": page,
			},
		})
	}
}

// GET /api/commandes/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		o, err := Fetch(database.DB, uint(id))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(fiber.Map{"data": toOrderResponse(o)})
	}
}

// POST /api/commandes
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		o, err := Create(database.DB, req, userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}

		uid, name := auditActor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserName:    name,
			EntityType:  "commande",
			EntityID:    o.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Création de la commande %s", o.Numero),
			After:       toOrderResponse(o),
		})
		notification.Notify(models.NotificationOrderCreated,
			fmt.Sprintf("Nouvelle commande %s", o.Numero), &o.ID)
		notifyLowStock(o)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toOrderResponse(o)})
	}
}

type editedLineRequest struct {
	LineID       uint    `json:"ligne_id"`
	ID           uint    `json:"id"`
	Quantity     int     `json:"quantite"`
	PrixUnitaire float64 `json:"prix_unitaire"`
}

type updateRequest struct {
	Statut *string `json:"statut"`
	// Brut pour distinguer le champ absent (client conservé) d'un
	// "client_id": null explicite (retour au client occasionnel).
	ClientID json.RawMessage     `json:"client_id"`
	Products []editedLineRequest `json:"produits"`
	Services []editedLineRequest `json:"services"`
}

// isStatusOnly: un PUT qui ne porte qu'un statut n'est pas une réconciliation.
func (r *updateRequest) isStatusOnly() bool {
	return r.Statut != nil && len(r.ClientID) == 0 && r.Products == nil && r.Services == nil
}

// parseClientID décode la valeur brute de client_id. null et 0 valent
// client occasionnel.
func parseClientID(raw json.RawMessage) (*uint, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var id uint
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}

// PUT /api/commandes/:id
// Deux usages: changement de statut seul, ou édition complète des lignes
// (réconciliation par différence avec l'état en base).
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var req updateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if req.isStatusOnly() {
			return updateStatus(c, uint(id), *req.Statut)
		}

		o, err := Fetch(database.DB, uint(id))
		if err != nil {
			return HTTPError(err)
		}
		before := toOrderResponse(o)

		edit := EditedOrder{ClientID: o.ClientID}
		if len(req.ClientID) > 0 {
			cid, err := parseClientID(req.ClientID)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "client_id invalide")
			}
			edit.ClientID = cid
		}
		for _, l := range req.Products {
			edit.Lines = append(edit.Lines, EditedLine{
				LineID:    l.LineID,
				ProductID: l.ID,
				Quantity:  l.Quantity,
				UnitPrice: l.PrixUnitaire,
			})
		}
		for _, l := range req.Services {
			edit.Lines = append(edit.Lines, EditedLine{
				LineID:    l.LineID,
				ServiceID: l.ID,
				Quantity:  l.Quantity,
				UnitPrice: l.PrixUnitaire,
			})
		}

		products, services, err := loadReferentials(edit)
		if err != nil {
			return HTTPError(err)
		}

		plan, err := BuildPlan(o, edit, products, services)
		if err != nil {
			return HTTPError(err)
		}

		updated, err := Apply(database.DB, plan, userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}
		notifyLowStock(updated)

		uid, name := auditActor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserName:    name,
			EntityType:  "commande",
			EntityID:    updated.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Commande %s: %s", updated.Numero, plan.Summary()),
			Before:      before,
			After:       toOrderResponse(updated),
		})

		return c.JSON(fiber.Map{
			"data":   toOrderResponse(updated),
			"resume": plan.Summary(),
		})
	}
}

func updateStatus(c *fiber.Ctx, orderID uint, statut string) error {
	statut = strings.ToUpper(strings.TrimSpace(statut))
	switch models.OrderStatus(statut) {
	case models.OrderStatusPending, models.OrderStatusValidated, models.OrderStatusCancelled:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Statut inconnu: "+statut)
	}

	o, err := Fetch(database.DB, orderID)
	if err != nil {
		return HTTPError(err)
	}
	before := toOrderResponse(o)

	if err := database.DB.Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", statut).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Statut non mis à jour")
	}

	updated, err := Fetch(database.DB, orderID)
	if err != nil {
		return HTTPError(err)
	}

	uid, name := auditActor(c)
	_ = audit.WriteLog(audit.LogOptions{
		UserID:      uid,
		UserName:    name,
		EntityType:  "commande",
		EntityID:    orderID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Commande %s passée à %s", updated.Numero, statut),
		Before:      before,
		After:       toOrderResponse(updated),
	})

	return c.JSON(fiber.Map{"data": toOrderResponse(updated)})
}

// loadReferentials charge produits et services référencés par l'édition.
func loadReferentials(edit EditedOrder) (map[uint]models.Product, map[uint]models.Service, error) {
	var prodIDs, svcIDs []uint
	for _, l := range edit.Lines {
		if l.ProductID != 0 {
			prodIDs = append(prodIDs, l.ProductID)
		}
		if l.ServiceID != 0 {
			svcIDs = append(svcIDs, l.ServiceID)
		}
	}

	products := make(map[uint]models.Product)
	if len(prodIDs) > 0 {
		var list []models.Product
		if err := database.DB.Where("id IN ?", prodIDs).Find(&list).Error; err != nil {
			return nil, nil, err
		}
		for _, p := range list {
			products[p.ID] = p
		}
		for _, id := range prodIDs {
			if _, ok := products[id]; !ok {
				return nil, nil, &NotFoundError{Entity: "produit", ID: id}
			}
		}
	}

	services := make(map[uint]models.Service)
	if len(svcIDs) > 0 {
		var list []models.Service
		if err := database.DB.Where("id IN ?", svcIDs).Find(&list).Error; err != nil {
			return nil, nil, err
		}
		for _, s := range list {
			services[s.ID] = s
		}
		for _, id := range svcIDs {
			if _, ok := services[id]; !ok {
				return nil, nil, &NotFoundError{Entity: "service", ID: id}
			}
		}
	}

	return products, services, nil
}

// DELETE /api/commandes/:id — suppression douce.
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		o, err := SoftDelete(database.DB, uint(id), userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}

		uid, name := auditActor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserName:    name,
			EntityType:  "commande",
			EntityID:    o.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Suppression de la commande %s", o.Numero),
			Before:      toOrderResponse(o),
		})

		return c.JSON(fiber.Map{"data": toOrderResponse(o)})
	}
}

// POST /api/commandes/:id/restore
func RestoreOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		o, err := Restore(database.DB, uint(id), userIDPtr(c))
		if err != nil {
			return HTTPError(err)
		}
		notifyLowStock(o)

		uid, name := auditActor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID:      uid,
			UserName:    name,
			EntityType:  "commande",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Restauration de la commande %s", o.Numero),
			After:       toOrderResponse(o),
		})

		return c.JSON(fiber.Map{"data": toOrderResponse(o)})
	}
}
