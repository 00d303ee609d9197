package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotalsWithDiscountAndTax(t *testing.T) {
	d := &Document{
		Lines: []Line{
			{Nom: "Produit A", Quantity: 2, UnitPrice: 15000, Total: 30000},
			{Nom: "Service B", Quantity: 1, UnitPrice: 20000, Total: 20000},
		},
		Discount: 5000,
		TaxRate:  19.25,
	}

	totals := ComputeTotals(d)

	assert.InDelta(t, 50000, totals.Subtotal, 0.001)
	assert.InDelta(t, 5000, totals.Discount, 0.001)
	assert.InDelta(t, 8662.5, totals.Tax, 0.001)
	assert.InDelta(t, 53662.5, totals.Total, 0.001)
	assert.InDelta(t, 53662.5, totals.Due, 0.001)
}

func TestComputeTotalsLineFallbackQuantityTimesUnit(t *testing.T) {
	d := &Document{
		Lines: []Line{
			{Nom: "Sans total", Quantity: 3, UnitPrice: 1000},
		},
	}

	totals := ComputeTotals(d)

	assert.InDelta(t, 3000, totals.Subtotal, 0.001)
}

func TestComputeTotalsExplicitTotalWins(t *testing.T) {
	d := &Document{
		Lines: []Line{
			{Nom: "Produit", Quantity: 1, UnitPrice: 10000, Total: 10000},
		},
		TaxRate:       19.25,
		ExplicitTotal: 9000, // la commande fait autorité
	}

	totals := ComputeTotals(d)

	assert.InDelta(t, 9000, totals.Total, 0.001)
}

func TestComputeTotalsDueNeverNegative(t *testing.T) {
	d := &Document{
		Lines: []Line{
			{Nom: "Produit", Quantity: 1, UnitPrice: 10000, Total: 10000},
		},
		Paid: 15000,
	}

	totals := ComputeTotals(d)

	assert.InDelta(t, 0, totals.Due, 0.001)
}

func TestComputeTotalsZeroRateZeroDiscount(t *testing.T) {
	d := &Document{
		Lines: []Line{
			{Nom: "Produit", Quantity: 2, UnitPrice: 500, Total: 1000},
		},
	}

	totals := ComputeTotals(d)

	assert.InDelta(t, 1000, totals.Subtotal, 0.001)
	assert.InDelta(t, 0, totals.Tax, 0.001)
	assert.InDelta(t, 1000, totals.Total, 0.001)
}
