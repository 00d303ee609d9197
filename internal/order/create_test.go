package order

import (
	"fmt"
	"strings"
	"testing"

	"realtech-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderDebitsStockAndComputesTotal(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Cartouche", 2500, 10)
	s := makeService(t, db, "Installation", 15000)
	cl := makeClient(t, db, "Diallo")

	o, err := Create(db, CreateRequest{
		ClientID: &cl.ID,
		Products: []LineRequest{{ID: p.ID, Quantity: 4}},
		Services: []LineRequest{{ID: s.ID, Quantity: 1}},
	}, nil)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(o.Code, "CMD-"))
	assert.Equal(t, fmt.Sprintf("CMD-%06d", o.ID), o.Numero)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, o.PaymentStatus)
	assert.InDelta(t, 4*2500+15000, o.Total, 0.001)
	require.Len(t, o.Products, 1)
	require.Len(t, o.Services, 1)

	assert.Equal(t, 6, reloadProduct(t, db, p.ID).StockActuel)
	assert.Equal(t, int64(1), countMovements(t, db, p.ID, models.StockMovementOut))
}

func TestCreateOrderRejectsEmptyAndUnknownRefs(t *testing.T) {
	db := newTestDB(t)

	_, err := Create(db, CreateRequest{}, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = Create(db, CreateRequest{Products: []LineRequest{{ID: 999, Quantity: 1}}}, nil)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCreateOrderRejectsInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Ecran", 80000, 2)

	_, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 3}},
	}, nil)

	var stock *StockExceededError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 2, stock.Max)

	// La transaction est annulée en entier
	assert.Equal(t, 2, reloadProduct(t, db, p.ID).StockActuel)
	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplyPlanAdjustsStockByDelta(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Clavier", 10000, 10)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 4}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 6, reloadProduct(t, db, p.ID).StockActuel)

	// 4 -> 7: delta de 3 débité
	plan, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: o.Products[0].ID, ProductID: p.ID, Quantity: 7}},
	}, map[uint]models.Product{p.ID: reloadProduct(t, db, p.ID)}, nil)
	require.NoError(t, err)

	updated, err := Apply(db, plan, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, reloadProduct(t, db, p.ID).StockActuel)
	assert.InDelta(t, 70000, updated.Total, 0.001)

	// 7 -> 2: delta de 5 recrédité
	plan, err = BuildPlan(updated, EditedOrder{
		Lines: []EditedLine{{LineID: updated.Products[0].ID, ProductID: p.ID, Quantity: 2}},
	}, map[uint]models.Product{p.ID: reloadProduct(t, db, p.ID)}, nil)
	require.NoError(t, err)

	updated, err = Apply(db, plan, nil)
	require.NoError(t, err)

	assert.Equal(t, 8, reloadProduct(t, db, p.ID).StockActuel)
	assert.InDelta(t, 20000, updated.Total, 0.001)
}

func TestNoHeadroomWhenLineConsumedAllStock(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Imprimante", 120000, 3)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 3}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, reloadProduct(t, db, p.ID).StockActuel)

	refs := map[uint]models.Product{p.ID: reloadProduct(t, db, p.ID)}

	// Nouvelle ligne sur le même produit: plus rien de disponible
	_, err = BuildPlan(o, EditedOrder{
		Lines: []EditedLine{
			{LineID: o.Products[0].ID, ProductID: p.ID, Quantity: 3},
			{ProductID: p.ID, Quantity: 1},
		},
	}, refs, nil)
	var stock *StockExceededError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 0, stock.Max)

	// Augmenter la ligne existante: plafond = stock restant (0) + réservé (3)
	_, err = BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: o.Products[0].ID, ProductID: p.ID, Quantity: 4}},
	}, refs, nil)
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 3, stock.Max)
}

func TestApplyPlanDeleteRestoresStock(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Souris", 5000, 10)
	s := makeService(t, db, "Maintenance", 20000)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 4}},
		Services: []LineRequest{{ID: s.ID, Quantity: 1}},
	}, nil)
	require.NoError(t, err)

	// L'état édité ne garde que le service
	plan, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: o.Services[0].ID, ServiceID: s.ID, Quantity: 1}},
	}, map[uint]models.Product{p.ID: reloadProduct(t, db, p.ID)},
		map[uint]models.Service{s.ID: s})
	require.NoError(t, err)

	updated, err := Apply(db, plan, nil)
	require.NoError(t, err)

	assert.Equal(t, 10, reloadProduct(t, db, p.ID).StockActuel)
	assert.Empty(t, updated.Products)
	assert.InDelta(t, 20000, updated.Total, 0.001)
	assert.Equal(t, int64(1), countMovements(t, db, p.ID, models.StockMovementIn))
}

func TestApplyRechecksLockUnderTransaction(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Câble", 1000, 10)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 1}},
	}, nil)
	require.NoError(t, err)

	plan, err := BuildPlan(o, EditedOrder{
		Lines: []EditedLine{{LineID: o.Products[0].ID, ProductID: p.ID, Quantity: 2}},
	}, map[uint]models.Product{p.ID: reloadProduct(t, db, p.ID)}, nil)
	require.NoError(t, err)

	// Un paiement arrive entre la construction du plan et son application
	_, _, err = ApplyPayment(db, o.ID, 500, models.PaymentModeCash, models.PaymentStatusPartial)
	require.NoError(t, err)

	_, err = Apply(db, plan, nil)
	var locked *LockedOrderError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 9, reloadProduct(t, db, p.ID).StockActuel)
}

func TestSoftDeleteCancelsAndRestoresStock(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Toner", 30000, 5)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 3}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, reloadProduct(t, db, p.ID).StockActuel)

	deleted, err := SoftDelete(db, o.ID, nil)
	require.NoError(t, err)

	assert.NotNil(t, deleted.DeletedAt)
	assert.Equal(t, models.OrderStatusCancelled, deleted.Status)
	assert.Equal(t, 5, reloadProduct(t, db, p.ID).StockActuel)

	_, err = SoftDelete(db, o.ID, nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestSoftDeleteRefusedWhenPaid(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Disque", 45000, 5)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 1}},
	}, nil)
	require.NoError(t, err)

	_, _, err = ApplyPayment(db, o.ID, 10000, models.PaymentModeCash, models.PaymentStatusPartial)
	require.NoError(t, err)

	_, err = SoftDelete(db, o.ID, nil)
	var locked *LockedOrderError
	require.ErrorAs(t, err, &locked)
}

func TestRestoreRedebitsStock(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Batterie", 25000, 4)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 3}},
	}, nil)
	require.NoError(t, err)

	_, err = SoftDelete(db, o.ID, nil)
	require.NoError(t, err)
	require.Equal(t, 4, reloadProduct(t, db, p.ID).StockActuel)

	restored, err := Restore(db, o.ID, nil)
	require.NoError(t, err)

	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, models.OrderStatusPending, restored.Status)
	assert.Equal(t, 1, reloadProduct(t, db, p.ID).StockActuel)
}

func TestRestoreFailsWhenStockConsumed(t *testing.T) {
	db := newTestDB(t)
	p := makeProduct(t, db, "Onduleur", 90000, 3)

	o, err := Create(db, CreateRequest{
		Products: []LineRequest{{ID: p.ID, Quantity: 3}},
	}, nil)
	require.NoError(t, err)

	_, err = SoftDelete(db, o.ID, nil)
	require.NoError(t, err)

	// Le stock recrédité part ailleurs avant la restauration
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", p.ID).
		Update("stock_actuel", 1).Error)

	_, err = Restore(db, o.ID, nil)
	var stock *StockExceededError
	require.ErrorAs(t, err, &stock)

	// Rien n'a bougé: la commande reste supprimée
	reloaded := models.Order{}
	require.NoError(t, db.First(&reloaded, o.ID).Error)
	assert.NotNil(t, reloaded.DeletedAt)
	assert.Equal(t, 1, reloadProduct(t, db, p.ID).StockActuel)
}
