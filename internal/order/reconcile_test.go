package order

import (
	"testing"

	"realtech-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productMap(products ...models.Product) map[uint]models.Product {
	m := make(map[uint]models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}

func serviceMap(services ...models.Service) map[uint]models.Service {
	m := make(map[uint]models.Service, len(services))
	for _, s := range services {
		m[s.ID] = s
	}
	return m
}

func TestBuildPlanRefusesOrderWithPayment(t *testing.T) {
	o := &models.Order{ID: 1, Status: models.OrderStatusPending, AmountPaid: 500}

	_, err := BuildPlan(o, EditedOrder{}, nil, nil)

	var locked *LockedOrderError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, uint(1), locked.OrderID)
}

func TestBuildPlanRefusesTerminalStatuses(t *testing.T) {
	for _, statut := range []string{"VALIDE", "validee", "Confirmee", "TERMINEE", "livree", "ACHEVEE"} {
		o := &models.Order{ID: 2, Status: models.OrderStatus(statut)}

		_, err := BuildPlan(o, EditedOrder{}, nil, nil)

		var locked *LockedOrderError
		require.ErrorAs(t, err, &locked, "statut %q devrait verrouiller", statut)
	}
}

func TestBuildPlanEmptyWhenNothingChanged(t *testing.T) {
	clientID := uint(7)
	o := &models.Order{
		ID:       3,
		Status:   models.OrderStatusPending,
		ClientID: &clientID,
		Products: []models.OrderProduct{
			{ID: 10, OrderID: 3, ProductID: 100, Quantity: 2, LineTotal: 2000},
		},
		Services: []models.OrderService{
			{ID: 20, OrderID: 3, ServiceID: 200, Quantity: 1, LineTotal: 5000},
		},
	}
	edit := EditedOrder{
		ClientID: &clientID,
		Lines: []EditedLine{
			{LineID: 10, ProductID: 100, Quantity: 2},
			{LineID: 20, ServiceID: 200, Quantity: 1},
		},
	}
	products := productMap(models.Product{ID: 100, PrixUnitaire: 1000, StockActuel: 50})
	services := serviceMap(models.Service{ID: 200, PrixUnitaire: 5000})

	plan, err := BuildPlan(o, edit, products, services)

	require.NoError(t, err)
	assert.True(t, plan.Empty())
	assert.Equal(t, "aucune modification", plan.Summary())
}

func TestBuildPlanNewLineStockCeiling(t *testing.T) {
	o := &models.Order{ID: 4, Status: models.OrderStatusPending}
	products := productMap(models.Product{ID: 100, PrixUnitaire: 1000, StockActuel: 3})

	_, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{ProductID: 100, Quantity: 4}},
	}, products, nil)

	var stock *StockExceededError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 3, stock.Max)
	assert.Equal(t, 4, stock.Requested)
}

func TestBuildPlanEditedLineStockCeilingIncludesReservation(t *testing.T) {
	// La ligne d'origine a déjà réservé 5 unités: avec 3 en stock,
	// le plafond effectif pour cette ligne est 8.
	o := &models.Order{
		ID:     5,
		Status: models.OrderStatusPending,
		Products: []models.OrderProduct{
			{ID: 10, OrderID: 5, ProductID: 100, Quantity: 5, LineTotal: 5000},
		},
	}
	products := productMap(models.Product{ID: 100, PrixUnitaire: 1000, StockActuel: 3})

	plan, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: 10, ProductID: 100, Quantity: 8}},
	}, products, nil)
	require.NoError(t, err)
	require.Len(t, plan.UpdateProducts, 1)
	assert.Equal(t, 8, plan.UpdateProducts[0].Quantity)

	_, err = BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: 10, ProductID: 100, Quantity: 9}},
	}, products, nil)

	var stock *StockExceededError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 8, stock.Max)
}

func TestBuildPlanPricePriority(t *testing.T) {
	o := &models.Order{
		ID:     6,
		Status: models.OrderStatusPending,
		Products: []models.OrderProduct{
			{ID: 10, OrderID: 6, ProductID: 100, Quantity: 4, LineTotal: 4800},
		},
	}
	edit := EditedOrder{Lines: []EditedLine{{LineID: 10, ProductID: 100, Quantity: 2, UnitPrice: 1100}}}

	// Prix courant du référentiel prioritaire
	plan, err := BuildPlan(o, edit, productMap(models.Product{ID: 100, PrixUnitaire: 1500, StockActuel: 50}), nil)
	require.NoError(t, err)
	require.Len(t, plan.UpdateProducts, 1)
	assert.InDelta(t, 1500, plan.UpdateProducts[0].UnitPrice, 0.001)
	assert.InDelta(t, 3000, plan.UpdateProducts[0].Total, 0.001)

	// Référentiel sans prix: repli sur le prix de la ligne éditée
	plan, err = BuildPlan(o, edit, productMap(models.Product{ID: 100, PrixUnitaire: 0, StockActuel: 50}), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1100, plan.UpdateProducts[0].UnitPrice, 0.001)

	// Ni référentiel ni prix édité: total/quantité d'origine (4800/4)
	editNoPrice := EditedOrder{Lines: []EditedLine{{LineID: 10, ProductID: 100, Quantity: 2}}}
	plan, err = BuildPlan(o, editNoPrice, productMap(models.Product{ID: 100, PrixUnitaire: 0, StockActuel: 50}), nil)
	require.NoError(t, err)
	assert.InDelta(t, 1200, plan.UpdateProducts[0].UnitPrice, 0.001)
}

func TestBuildPlanDetectsRemovedLines(t *testing.T) {
	o := &models.Order{
		ID:     7,
		Status: models.OrderStatusPending,
		Products: []models.OrderProduct{
			{ID: 10, OrderID: 7, ProductID: 100, Quantity: 2, LineTotal: 2000},
			{ID: 11, OrderID: 7, ProductID: 101, Quantity: 1, LineTotal: 500},
		},
		Services: []models.OrderService{
			{ID: 20, OrderID: 7, ServiceID: 200, Quantity: 1, LineTotal: 5000},
		},
	}
	products := productMap(
		models.Product{ID: 100, PrixUnitaire: 1000, StockActuel: 50},
		models.Product{ID: 101, PrixUnitaire: 500, StockActuel: 50},
	)

	// Seule la ligne 10 survit à l'édition
	plan, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: 10, ProductID: 100, Quantity: 2}},
	}, products, nil)

	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{11}, plan.DeleteProducts)
	assert.ElementsMatch(t, []uint{20}, plan.DeleteServices)
	assert.Empty(t, plan.UpdateProducts)
}

func TestBuildPlanRejectsNonPositiveQuantity(t *testing.T) {
	o := &models.Order{ID: 8, Status: models.OrderStatusPending}

	_, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{ProductID: 100, Quantity: 0}},
	}, productMap(models.Product{ID: 100, StockActuel: 10}), nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBuildPlanRejectsLineWithoutReference(t *testing.T) {
	o := &models.Order{ID: 9, Status: models.OrderStatusPending}

	_, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{Quantity: 1}},
	}, nil, nil)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestBuildPlanClientChange(t *testing.T) {
	oldClient := uint(1)
	newClient := uint(2)
	o := &models.Order{ID: 10, Status: models.OrderStatusPending, ClientID: &oldClient}

	plan, err := BuildPlan(o, EditedOrder{ClientID: &newClient}, nil, nil)
	require.NoError(t, err)
	assert.True(t, plan.ClientChanged)
	require.NotNil(t, plan.NewClientID)
	assert.Equal(t, newClient, *plan.NewClientID)

	// Passage à client occasionnel
	plan, err = BuildPlan(o, EditedOrder{ClientID: nil}, nil, nil)
	require.NoError(t, err)
	assert.True(t, plan.ClientChanged)
	assert.Nil(t, plan.NewClientID)
}

func TestPlanSummaryCounts(t *testing.T) {
	plan := &Plan{
		AddProducts:    []LineAdd{{RefID: 1, Quantity: 1}},
		DeleteServices: []uint{20},
		ClientChanged:  true,
	}
	assert.Equal(t, "1 produit(s) ajouté(s), 1 service(s) retiré(s), client modifié", plan.Summary())
}
