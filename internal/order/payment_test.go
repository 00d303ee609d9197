package order

import (
	"testing"

	"realtech-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func makeOrderWithTotal(t *testing.T, db *gorm.DB, total float64) models.Order {
	t.Helper()
	o := models.Order{
		Code:          newOrderCode(),
		Numero:        "CMD-000042",
		Total:         total,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
		Actif:         true,
	}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("création commande: %v", err)
	}
	return o
}

func TestApplyPaymentFullSettlesAndLocksOrder(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	updated, payment, err := ApplyPayment(db, o.ID, 100000, models.PaymentModeCash, models.PaymentStatusPaid)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.InDelta(t, 100000, updated.AmountPaid, 0.001)
	assert.InDelta(t, 0, updated.Outstanding(), 0.001)
	assert.InDelta(t, 100000, payment.Amount, 0.001)

	// Toute édition structurelle est désormais refusée
	err = CheckEditable(updated)
	var locked *LockedOrderError
	require.ErrorAs(t, err, &locked)
}

func TestApplyPaymentPartialTracksRemainder(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	updated, _, err := ApplyPayment(db, o.ID, 60000, models.PaymentModeMobileMoney, models.PaymentStatusPartial)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, updated.PaymentStatus)
	assert.InDelta(t, 60000, updated.AmountPaid, 0.001)
	assert.InDelta(t, 40000, updated.Outstanding(), 0.001)
}

func TestApplyPaymentSecondPaymentCompletes(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	_, _, err := ApplyPayment(db, o.ID, 60000, models.PaymentModeCash, models.PaymentStatusPartial)
	require.NoError(t, err)

	updated, _, err := ApplyPayment(db, o.ID, 40000, models.PaymentModeCash, models.PaymentStatusPaid)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.InDelta(t, 100000, updated.AmountPaid, 0.001)

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", o.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestApplyPaymentRejectsOverpayment(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	_, _, err := ApplyPayment(db, o.ID, 60000, models.PaymentModeCash, models.PaymentStatusPartial)
	require.NoError(t, err)

	// Reste 40000: 50000 doit être refusé sans toucher à l'état
	_, _, err = ApplyPayment(db, o.ID, 50000, models.PaymentModeCash, models.PaymentStatusPaid)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	reloaded, err := Fetch(db, o.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60000, reloaded.AmountPaid, 0.001)
	assert.Equal(t, models.PaymentStatusPartial, reloaded.PaymentStatus)

	var count int64
	db.Model(&models.Payment{}).Where("order_id = ?", o.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestApplyPaymentDeclaredStatusMustMatchArithmetic(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	// PAYEE exige le solde exact
	_, _, err := ApplyPayment(db, o.ID, 60000, models.PaymentModeCash, models.PaymentStatusPaid)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	// PARTIELLE exige strictement moins que le solde
	_, _, err = ApplyPayment(db, o.ID, 100000, models.PaymentModeCash, models.PaymentStatusPartial)
	require.ErrorAs(t, err, &ve)
}

func TestApplyPaymentValidation(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100000)

	var ve *ValidationError

	_, _, err := ApplyPayment(db, o.ID, 0, models.PaymentModeCash, models.PaymentStatusPaid)
	require.ErrorAs(t, err, &ve)

	_, _, err = ApplyPayment(db, o.ID, 1000, "bitcoin", models.PaymentStatusPartial)
	require.ErrorAs(t, err, &ve)

	_, _, err = ApplyPayment(db, o.ID, 1000, models.PaymentModeCash, models.PaymentStatusUnpaid)
	require.ErrorAs(t, err, &ve)

	var notFound *NotFoundError
	_, _, err = ApplyPayment(db, 9999, 1000, models.PaymentModeCash, models.PaymentStatusPartial)
	require.ErrorAs(t, err, &notFound)
}

func TestApplyPaymentRefusesSettledOrder(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 50000)

	_, _, err := ApplyPayment(db, o.ID, 50000, models.PaymentModeCash, models.PaymentStatusPaid)
	require.NoError(t, err)

	_, _, err = ApplyPayment(db, o.ID, 1000, models.PaymentModeCash, models.PaymentStatusPartial)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestApplyPaymentCentTolerance(t *testing.T) {
	db := newTestDB(t)
	o := makeOrderWithTotal(t, db, 100)

	// À un centime près, le paiement vaut solde exact
	updated, _, err := ApplyPayment(db, o.ID, 99.995, models.PaymentModeCash, models.PaymentStatusPaid)

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
}
