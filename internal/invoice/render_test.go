package invoice

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"realtech-backend/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCompany() settings.Company {
	return settings.Company{
		Nom:       "RealTech Services",
		Adresse:   "Quartier Almamya, Conakry",
		Telephone: "+224 620 00 00 00",
		Email:     "contact@realtech.example",
		Devise:    "FCFA",
		TauxTaxe:  0,
	}
}

func testDocument() *Document {
	return &Document{
		Numero:    "CMD-000123",
		Date:      time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		ClientNom: "Mamadou Diallo",
		Lines: []Line{
			{Nom: "Cartouche d'encre", Quantity: 2, UnitPrice: 25000, Total: 50000},
			{Nom: "Installation réseau", Quantity: 1, UnitPrice: 150000, Total: 150000},
		},
		ExplicitTotal: 200000,
		Paid:          200000,
		Company:       testCompany(),
	}
}

func TestRenderInvoicePNGDimensions(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "facture.png")

	err := RenderInvoicePNG(testDocument(), "", dest)
	require.NoError(t, err)

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, invoiceWidth, img.Bounds().Dx())
	assert.Equal(t, invoiceHeight, img.Bounds().Dy())
}

func TestRenderInvoiceThenPDF(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "facture.png")
	pdfPath := filepath.Join(dir, "facture.pdf")

	require.NoError(t, RenderInvoicePNG(testDocument(), "", pngPath))
	require.NoError(t, PNGToPDF(pngPath, pdfPath))

	info, err := os.Stat(pdfPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	// Aucun fichier temporaire ne doit survivre
	_, err = os.Stat(pdfPath + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRenderInvoiceUnpaidDocument(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "facture.png")

	d := testDocument()
	d.Paid = 50000 // reste 150000, le badge MONTANT DÛ doit se dessiner sans erreur

	require.NoError(t, RenderInvoicePNG(d, "", dest))
	_, err := os.Stat(dest)
	require.NoError(t, err)
}

func TestRenderInvoicePaidAmountOnDocument(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.png")
	pathB := filepath.Join(dir, "b.png")

	// Deux factures soldées: badge et solde identiques, seule la ligne
	// "Payé" du cartouche peut les distinguer.
	d1 := testDocument()
	d2 := testDocument()
	d2.Paid = 250000

	require.NoError(t, RenderInvoicePNG(d1, "", pathA))
	require.NoError(t, RenderInvoicePNG(d2, "", pathB))

	rawA, err := os.ReadFile(pathA)
	require.NoError(t, err)
	rawB, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.NotEqual(t, rawA, rawB)
}

func TestRenderReceiptPNG(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "recu.png")

	r := &Receipt{
		Numero:      "CMD-000123-P001",
		OrderNumero: "CMD-000123",
		Date:        time.Date(2026, 8, 16, 10, 30, 0, 0, time.UTC),
		ClientNom:   "Mamadou Diallo",
		Amount:      60000,
		Mode:        "mobile_money",
		Remaining:   40000,
		Company:     testCompany(),
	}

	require.NoError(t, RenderReceiptPNG(r, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, receiptWidth, img.Bounds().Dx())
	assert.Equal(t, receiptHeight, img.Bounds().Dy())
}

func TestPNGToPDFMissingSource(t *testing.T) {
	dir := t.TempDir()

	err := PNGToPDF(filepath.Join(dir, "absent.png"), filepath.Join(dir, "out.pdf"))

	var re *RenderError
	require.ErrorAs(t, err, &re)
}
