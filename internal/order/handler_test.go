package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	database.DB = newTestDB(t)

	// Routage minimal, sans middleware d'authentification
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Get("/api/commandes", ListOrdersHandler())
	app.Get("/api/commandes/:id", GetOrderHandler())
	app.Post("/api/commandes", CreateOrderHandler())
	app.Put("/api/commandes/:id", UpdateOrderHandler())
	app.Post("/api/commandes/:id/paiement", PayOrderHandler())
	app.Get("/api/commandes/:id/paiements", ListPaymentsHandler())
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func seedOrder(t *testing.T, total float64) models.Order {
	t.Helper()
	o := models.Order{
		Code:          newOrderCode(),
		Total:         total,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Actif:         true,
	}
	require.NoError(t, database.DB.Create(&o).Error)
	o.Numero = fmt.Sprintf("CMD-%06d", o.ID)
	require.NoError(t, database.DB.Model(&o).Update("numero", o.Numero).Error)
	return o
}

type listEnvelope struct {
	Data struct {
		Commandes []struct {
			ID       uint    `json:"id"`
			TotalCmd float64 `json:"total_cmd"`
		} `json:"commandes"`
		Total       int64 `json:"total"`
		TotalPages  int   `json:"totalPages"`
		CurrentPage int   `json:"currentPage"`
	} `json:"data"`
}

func TestListOrdersSortWhitelistAndPagination(t *testing.T) {
	app := newTestApp(t)
	seedOrder(t, 300)
	seedOrder(t, 100)
	seedOrder(t, 200)

	resp, raw := doJSON(t, app, http.MethodGet, "/api/commandes?sort=total_cmd&dir=asc&limit=2&page=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env listEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Len(t, env.Data.Commandes, 2)
	assert.InDelta(t, 100, env.Data.Commandes[0].TotalCmd, 0.001)
	assert.InDelta(t, 200, env.Data.Commandes[1].TotalCmd, 0.001)
	assert.Equal(t, int64(3), env.Data.Total)
	assert.Equal(t, 2, env.Data.TotalPages)
	assert.Equal(t, 1, env.Data.CurrentPage)
}

func TestListOrdersUnknownSortFallsBackToCreatedAt(t *testing.T) {
	app := newTestApp(t)
	first := seedOrder(t, 100)
	seedOrder(t, 200)

	// Un champ hors liste blanche ne doit jamais atteindre le SQL
	resp, raw := doJSON(t, app, http.MethodGet, "/api/commandes?sort=total_cmd%3BDROP+TABLE+orders&dir=asc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env listEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Len(t, env.Data.Commandes, 2)
	assert.Equal(t, first.ID, env.Data.Commandes[0].ID)
}

func TestGetOrderNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/commandes/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPayOrderEndpoint(t *testing.T) {
	app := newTestApp(t)
	o := seedOrder(t, 100000)

	resp, raw := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/commandes/%d/paiement", o.ID),
		fiber.Map{"montant": 60000, "mode_paiement": "cash", "statut_paiement": "PARTIELLE"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Data struct {
			Commande struct {
				StatutPaiement string  `json:"statut_paiement"`
				Reste          float64 `json:"reste"`
			} `json:"commande"`
			Paiement struct {
				Montant float64 `json:"montant"`
			} `json:"paiement"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "PARTIELLE", out.Data.Commande.StatutPaiement)
	assert.InDelta(t, 40000, out.Data.Commande.Reste, 0.001)
	assert.InDelta(t, 60000, out.Data.Paiement.Montant, 0.001)

	// Dépassement du reste: 400 et aucun second paiement
	resp, _ = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/commandes/%d/paiement", o.ID),
		fiber.Map{"montant": 50000, "mode_paiement": "cash", "statut_paiement": "PAYEE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/commandes/%d/paiements", o.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payments struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &payments))
	assert.Len(t, payments.Data, 1)
}

func TestUpdateOrderStatusOnlyThenLocked(t *testing.T) {
	app := newTestApp(t)
	o := seedOrder(t, 5000)

	resp, raw := doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/commandes/%d", o.ID),
		fiber.Map{"statut": "VALIDE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Statut string `json:"statut"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "VALIDE", out.Data.Statut)

	// Une fois validée, la réconciliation des lignes est refusée
	resp, _ = doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/commandes/%d", o.ID),
		fiber.Map{"produits": []fiber.Map{}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateOrderNotifiesLowStock(t *testing.T) {
	app := newTestApp(t)
	p := makeProduct(t, database.DB, "Câble HDMI", 2000, 6)

	lowStockCount := func() int64 {
		var n int64
		require.NoError(t, database.DB.Model(&models.Notification{}).
			Where("type = ?", models.NotificationLowStock).
			Count(&n).Error)
		return n
	}

	// Stock restant au seuil: pas d'alerte
	resp, _ := doJSON(t, app, http.MethodPost, "/api/commandes",
		fiber.Map{"produits": []fiber.Map{{"id": p.ID, "quantite": 1}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(0), lowStockCount())

	// Ce débit fait passer le stock à 2
	resp, _ = doJSON(t, app, http.MethodPost, "/api/commandes",
		fiber.Map{"produits": []fiber.Map{{"id": p.ID, "quantite": 3}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(1), lowStockCount())
}

func TestUpdateOrderClientNull(t *testing.T) {
	app := newTestApp(t)
	cl := makeClient(t, database.DB, "Barry")
	p := makeProduct(t, database.DB, "Écran 24 pouces", 80000, 10)

	resp, raw := doJSON(t, app, http.MethodPost, "/api/commandes",
		fiber.Map{"client_id": cl.ID, "produits": []fiber.Map{{"id": p.ID, "quantite": 2}}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			ID       uint  `json:"id"`
			ClientID *uint `json:"client_id"`
			Produits []struct {
				ID    uint `json:"id"`
				RefID uint `json:"ref_id"`
			} `json:"produits"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotNil(t, created.Data.ClientID)
	require.Len(t, created.Data.Produits, 1)
	line := created.Data.Produits[0]

	var updated struct {
		Data struct {
			ClientID *uint `json:"client_id"`
		} `json:"data"`
	}

	// Champ absent: le client est conservé
	resp, raw = doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/commandes/%d", created.Data.ID),
		fiber.Map{"produits": []fiber.Map{{"ligne_id": line.ID, "id": line.RefID, "quantite": 2}}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.NotNil(t, updated.Data.ClientID)

	// null explicite: retour au client occasionnel
	resp, raw = doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/commandes/%d", created.Data.ID),
		fiber.Map{
			"client_id": nil,
			"produits":  []fiber.Map{{"ligne_id": line.ID, "id": line.RefID, "quantite": 2}}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &updated))
	assert.Nil(t, updated.Data.ClientID)
}

func TestUpdateOrderUnknownStatus(t *testing.T) {
	app := newTestApp(t)
	o := seedOrder(t, 5000)

	resp, _ := doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/commandes/%d", o.ID),
		fiber.Map{"statut": "EXPEDIEE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
