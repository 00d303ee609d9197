package invoice

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"realtech-backend/internal/settings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/inconsolata"
)

// Dimensions du canevas, identiques pour toutes les factures.
const (
	invoiceWidth  = 1000
	invoiceHeight = 1400

	receiptWidth  = 600
	receiptHeight = 400
)

// Couleurs de la charte.
const (
	colorHeader    = "#0f172a"
	colorMuted     = "#64748b"
	colorRowAlt    = "#f8fafc"
	colorTableHead = "#f1f5f9"
	colorPaid      = "#10b981"
	colorDue       = "#ef4444"
)

// RenderInvoicePNG dessine la facture sur un canevas fixe et l'écrit en PNG
// à destPath (écriture atomique via fichier temporaire).
func RenderInvoicePNG(d *Document, logoPath, destPath string) error {
	t := ComputeTotals(d)

	dc := gg.NewContext(invoiceWidth, invoiceHeight)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	// Bandeau d'en-tête
	dc.SetHexColor(colorHeader)
	dc.DrawRectangle(0, 0, invoiceWidth, 160)
	dc.Fill()

	textX := 40.0
	if logoPath != "" {
		if logo := loadScaledImage(logoPath, 100, 100); logo != nil {
			dc.DrawImage(logo, 40, 30)
			textX = 160
		}
	}

	dc.SetFontFace(inconsolata.Bold8x16)
	dc.SetHexColor("#ffffff")
	dc.DrawString(d.Company.Nom, textX, 55)

	dc.SetFontFace(inconsolata.Regular8x16)
	dc.SetHexColor("#cbd5e1")
	y := 80.0
	for _, line := range []string{d.Company.Adresse, d.Company.Telephone, d.Company.Email} {
		if line != "" {
			dc.DrawString(line, textX, y)
			y += 22
		}
	}

	dc.SetFontFace(inconsolata.Bold8x16)
	dc.SetHexColor("#ffffff")
	dc.DrawStringAnchored("FACTURE", invoiceWidth-40, 55, 1, 0)
	dc.SetFontFace(inconsolata.Regular8x16)
	dc.SetHexColor("#cbd5e1")
	dc.DrawStringAnchored("N° "+d.Numero, invoiceWidth-40, 85, 1, 0)
	dc.DrawStringAnchored(d.Date.Format("02/01/2006"), invoiceWidth-40, 110, 1, 0)

	// Bloc client
	dc.SetFontFace(inconsolata.Bold8x16)
	dc.SetHexColor(colorHeader)
	dc.DrawString("Facturé à:", 40, 220)
	dc.SetFontFace(inconsolata.Regular8x16)
	dc.SetHexColor("#334155")
	dc.DrawString(d.ClientNom, 40, 245)

	// Tableau des lignes
	const (
		colQty   = 0.45 * invoiceWidth
		colUnit  = 0.60 * invoiceWidth
		colTotal = 0.78 * invoiceWidth
	)

	tableTop := 300.0
	dc.SetHexColor(colorTableHead)
	dc.DrawRectangle(40, tableTop, invoiceWidth-80, 36)
	dc.Fill()

	dc.SetFontFace(inconsolata.Bold8x16)
	dc.SetHexColor(colorHeader)
	dc.DrawString("Désignation", 52, tableTop+24)
	dc.DrawString("Qté", colQty, tableTop+24)
	dc.DrawString("Prix unitaire", colUnit, tableTop+24)
	dc.DrawString("Total", colTotal, tableTop+24)

	dc.SetFontFace(inconsolata.Regular8x16)
	rowY := tableTop + 36
	for i, line := range d.Lines {
		if i%2 == 1 {
			dc.SetHexColor(colorRowAlt)
			dc.DrawRectangle(40, rowY, invoiceWidth-80, 32)
			dc.Fill()
		}
		dc.SetHexColor("#334155")
		dc.DrawString(truncate(line.Nom, 44), 52, rowY+22)
		dc.DrawString(fmt.Sprintf("%d", line.Quantity), colQty, rowY+22)
		dc.DrawString(money(line.UnitPrice, d.Company.Devise), colUnit, rowY+22)
		dc.DrawString(money(line.Total, d.Company.Devise), colTotal, rowY+22)
		rowY += 32
	}

	// Cartouche des totaux
	boxX := 600.0
	boxY := rowY + 40
	dc.SetHexColor(colorMuted)
	dc.SetLineWidth(1)
	dc.DrawLine(boxX, boxY-10, invoiceWidth-40, boxY-10)
	dc.Stroke()

	drawTotalRow := func(label, value string, bold bool) {
		if bold {
			dc.SetFontFace(inconsolata.Bold8x16)
			dc.SetHexColor(colorHeader)
		} else {
			dc.SetFontFace(inconsolata.Regular8x16)
			dc.SetHexColor("#334155")
		}
		dc.DrawString(label, boxX, boxY+18)
		dc.DrawStringAnchored(value, invoiceWidth-40, boxY+18, 1, 0)
		boxY += 30
	}

	drawTotalRow("Sous-total", money(t.Subtotal, d.Company.Devise), false)
	if t.Discount > 0 {
		drawTotalRow("Remise", "-"+money(t.Discount, d.Company.Devise), false)
	}
	if d.TaxRate > 0 {
		drawTotalRow(fmt.Sprintf("Taxe (%.2f%%)", d.TaxRate), money(t.Tax, d.Company.Devise), false)
	}
	drawTotalRow("TOTAL", money(t.Total, d.Company.Devise), true)
	drawTotalRow("Payé", money(d.Paid, d.Company.Devise), false)

	// Solde: vert quand tout est réglé, rouge sinon
	dc.SetFontFace(inconsolata.Bold8x16)
	if t.Due <= 0.01 {
		dc.SetHexColor(colorPaid)
		dc.DrawString("PAYÉ", boxX, boxY+18)
	} else {
		dc.SetHexColor(colorDue)
		dc.DrawString("Montant dû", boxX, boxY+18)
		dc.DrawStringAnchored(money(t.Due, d.Company.Devise), invoiceWidth-40, boxY+18, 1, 0)
	}
	boxY += 30

	// Badge de règlement
	badgeY := boxY + 20
	if t.Due <= 0.01 {
		dc.SetHexColor(colorPaid)
		dc.DrawRectangle(boxX, badgeY, invoiceWidth-40-boxX, 40)
		dc.Fill()
		dc.SetFontFace(inconsolata.Bold8x16)
		dc.SetHexColor("#ffffff")
		dc.DrawStringAnchored("PAYÉ", (boxX+invoiceWidth-40)/2, badgeY+25, 0.5, 0)
	} else {
		dc.SetHexColor(colorDue)
		dc.DrawRectangle(boxX, badgeY, invoiceWidth-40-boxX, 40)
		dc.Fill()
		dc.SetFontFace(inconsolata.Bold8x16)
		dc.SetHexColor("#ffffff")
		dc.DrawStringAnchored("MONTANT DÛ: "+money(t.Due, d.Company.Devise),
			(boxX+invoiceWidth-40)/2, badgeY+25, 0.5, 0)
	}

	// Pied de page
	dc.SetFontFace(inconsolata.Regular8x16)
	dc.SetHexColor(colorMuted)
	footer := "Merci de votre confiance"
	if d.Company.NIF != "" {
		footer += " — NIF: " + d.Company.NIF
	}
	if d.Company.RCCM != "" {
		footer += " — RCCM: " + d.Company.RCCM
	}
	dc.DrawStringAnchored(footer, invoiceWidth/2, invoiceHeight-40, 0.5, 0)

	if err := writePNG(dc, destPath); err != nil {
		return &RenderError{Document: "facture " + d.Numero, Err: err}
	}
	return nil
}

// Receipt: vue imprimable d'un paiement unitaire.
type Receipt struct {
	Numero      string // numéro du reçu
	OrderNumero string
	Date        time.Time
	ClientNom   string
	Amount      float64
	Mode        string
	Remaining   float64
	Company     settings.Company
}

// RenderReceiptPNG dessine le reçu de paiement en petit format.
func RenderReceiptPNG(r *Receipt, destPath string) error {
	dc := gg.NewContext(receiptWidth, receiptHeight)
	dc.SetHexColor("#ffffff")
	dc.Clear()

	dc.SetHexColor(colorPaid)
	dc.DrawRectangle(0, 0, receiptWidth, 90)
	dc.Fill()

	dc.SetFontFace(inconsolata.Bold8x16)
	dc.SetHexColor("#ffffff")
	dc.DrawStringAnchored("REÇU DE PAIEMENT", receiptWidth/2, 40, 0.5, 0)
	dc.SetFontFace(inconsolata.Regular8x16)
	dc.DrawStringAnchored(r.Company.Nom, receiptWidth/2, 68, 0.5, 0)

	dc.SetHexColor("#334155")
	y := 130.0
	row := func(label, value string) {
		dc.SetFontFace(inconsolata.Regular8x16)
		dc.SetHexColor(colorMuted)
		dc.DrawString(label, 40, y)
		dc.SetFontFace(inconsolata.Bold8x16)
		dc.SetHexColor(colorHeader)
		dc.DrawStringAnchored(value, receiptWidth-40, y, 1, 0)
		y += 32
	}

	row("Reçu n°", r.Numero)
	row("Commande", r.OrderNumero)
	row("Date", r.Date.Format("02/01/2006 15:04"))
	row("Client", r.ClientNom)
	row("Mode de paiement", r.Mode)
	row("Montant reçu", money(r.Amount, r.Company.Devise))
	row("Reste à payer", money(r.Remaining, r.Company.Devise))

	dc.SetFontFace(inconsolata.Regular8x16)
	dc.SetHexColor(colorMuted)
	dc.DrawStringAnchored("Merci de votre confiance", receiptWidth/2, receiptHeight-30, 0.5, 0)

	if err := writePNG(dc, destPath); err != nil {
		return &RenderError{Document: "reçu " + r.Numero, Err: err}
	}
	return nil
}

func writePNG(dc *gg.Context, destPath string) error {
	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, destPath)
}

// loadScaledImage charge puis redimensionne une image pour tenir dans
// maxW×maxH en conservant les proportions. nil en cas d'échec, le document
// est alors rendu sans logo.
func loadScaledImage(path string, maxW, maxH int) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil
	}

	scale := float64(maxW) / float64(b.Dx())
	if s := float64(maxH) / float64(b.Dy()); s < scale {
		scale = s
	}
	if scale > 1 {
		scale = 1
	}

	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
