package invoice

import (
	"fmt"
	"strings"
	"time"

	"realtech-backend/internal/models"
	"realtech-backend/internal/settings"
)

// Line: ligne d'un document imprimable, produit ou service confondus.
type Line struct {
	Nom       string
	Quantity  int
	UnitPrice float64
	Total     float64
}

// Document: vue imprimable d'une commande, figée au moment du rendu.
type Document struct {
	Numero    string
	Date      time.Time
	ClientNom string
	Lines     []Line

	Discount float64
	TaxRate  float64

	// Total porté par la commande. Prioritaire sur le total recalculé
	// quand il est renseigné, la commande fait autorité.
	ExplicitTotal float64
	Paid          float64

	Company settings.Company
}

// Totals: montants affichés dans le cartouche de la facture.
type Totals struct {
	Subtotal float64
	Discount float64
	Tax      float64
	Total    float64
	Due      float64
}

// ComputeTotals recalcule les montants du document. Le sous-total somme les
// totaux de lignes (quantité × prix unitaire en repli), la taxe s'applique
// après remise, et le reste dû ne passe jamais sous zéro.
func ComputeTotals(d *Document) Totals {
	var subtotal float64
	for _, l := range d.Lines {
		lineTotal := l.Total
		if lineTotal == 0 {
			lineTotal = float64(l.Quantity) * l.UnitPrice
		}
		subtotal += lineTotal
	}

	t := Totals{
		Subtotal: subtotal,
		Discount: d.Discount,
	}

	t.Tax = (subtotal - d.Discount) * d.TaxRate / 100

	t.Total = subtotal - d.Discount + t.Tax
	if d.ExplicitTotal > 0 {
		t.Total = d.ExplicitTotal
	}

	t.Due = t.Total - d.Paid
	if t.Due < 0 {
		t.Due = 0
	}

	return t
}

// FromOrder construit le document imprimable depuis une commande chargée
// avec ses lignes et son client.
func FromOrder(o *models.Order, company settings.Company) *Document {
	d := &Document{
		Numero:        o.Numero,
		Date:          o.OrderDate,
		ExplicitTotal: o.Total,
		Paid:          o.AmountPaid,
		TaxRate:       company.TauxTaxe,
		Company:       company,
	}
	if o.Client != nil {
		d.ClientNom = strings.TrimSpace(o.Client.Prenom + " " + o.Client.Nom)
	}
	if d.ClientNom == "" {
		d.ClientNom = "Client occasionnel"
	}

	for _, l := range o.Products {
		unit := 0.0
		if l.Quantity > 0 {
			unit = l.LineTotal / float64(l.Quantity)
		}
		d.Lines = append(d.Lines, Line{
			Nom:       l.Product.Nom,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			Total:     l.LineTotal,
		})
	}
	for _, l := range o.Services {
		unit := 0.0
		if l.Quantity > 0 {
			unit = l.LineTotal / float64(l.Quantity)
		}
		d.Lines = append(d.Lines, Line{
			Nom:       l.Service.Nom,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			Total:     l.LineTotal,
		})
	}

	return d
}

// RenderError: échec de génération d'un document, le document concerné est
// nommé pour le diagnostic.
type RenderError struct {
	Document string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendu de %s impossible: %v", e.Document, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// money formate un montant avec la devise de l'entreprise.
func money(amount float64, devise string) string {
	if devise == "" {
		devise = "FCFA"
	}
	return fmt.Sprintf("%.2f %s", amount, devise)
}
