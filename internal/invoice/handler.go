package invoice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"realtech-backend/internal/config"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
	"realtech-backend/internal/order"
	"realtech-backend/internal/settings"

	"github.com/gofiber/fiber/v2"
)

func invoiceDir(uploadPath, numero string) string {
	return filepath.Join(uploadPath, "factures", numero)
}

func receiptDir(uploadPath, numero string) string {
	return filepath.Join(uploadPath, "recus", numero)
}

// generateInvoice rend PNG puis PDF pour la commande, et renvoie les deux chemins.
func generateInvoice(cfg *config.Config, o *models.Order) (pngPath, pdfPath string, err error) {
	company, err := settings.LoadCompany(cfg.UploadPath)
	if err != nil {
		return "", "", err
	}

	dir := invoiceDir(cfg.UploadPath, o.Numero)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	pngPath = filepath.Join(dir, "facture-"+o.Numero+".png")
	pdfPath = filepath.Join(dir, "facture-"+o.Numero+".pdf")

	doc := FromOrder(o, company)
	if err := RenderInvoicePNG(doc, settings.LogoPath(cfg.UploadPath), pngPath); err != nil {
		return "", "", err
	}
	if err := PNGToPDF(pngPath, pdfPath); err != nil {
		return "", "", err
	}
	return pngPath, pdfPath, nil
}

// POST /api/commandes/:id/invoice
// Génère (ou régénère) la facture et renvoie les chemins relatifs.
func GenerateInvoiceHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		o, err := order.Fetch(database.DB, uint(id))
		if err != nil {
			return order.HTTPError(err)
		}

		pngPath, pdfPath, err := generateInvoice(cfg, o)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError,
				"Génération de la facture impossible: "+err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"data": fiber.Map{
				"numero": o.Numero,
				"png":    relPath(cfg.UploadPath, pngPath),
				"pdf":    relPath(cfg.UploadPath, pdfPath),
			},
		})
	}
}

// GET /api/commandes/:id/invoice/download?format=pdf|png&inline=true
// Sert le document, en le générant au vol s'il n'existe pas encore.
func DownloadInvoiceHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		o, err := order.Fetch(database.DB, uint(id))
		if err != nil {
			return order.HTTPError(err)
		}

		format := strings.ToLower(c.Query("format", "pdf"))
		if format != "pdf" && format != "png" {
			return fiber.NewError(fiber.StatusBadRequest, "Format inconnu (pdf ou png)")
		}

		dir := invoiceDir(cfg.UploadPath, o.Numero)
		target := filepath.Join(dir, "facture-"+o.Numero+"."+format)
		if _, statErr := os.Stat(target); statErr != nil {
			if _, _, genErr := generateInvoice(cfg, o); genErr != nil {
				return fiber.NewError(fiber.StatusInternalServerError,
					"Génération de la facture impossible: "+genErr.Error())
			}
		}

		if c.QueryBool("inline", false) {
			return c.SendFile(target)
		}
		return c.Download(target, "facture-"+o.Numero+"."+format)
	}
}

// GET /api/commandes/:id/paiements/:paymentId/recu
// Reçu PDF d'un paiement unitaire, généré à la demande.
func DownloadReceiptHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		paymentID, err := c.ParamsInt("paymentId")
		if err != nil || paymentID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant de paiement invalide")
		}

		o, err := order.Fetch(database.DB, uint(id))
		if err != nil {
			return order.HTTPError(err)
		}

		var payment models.Payment
		if err := database.DB.
			Where("id = ? AND order_id = ?", paymentID, id).
			First(&payment).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Paiement introuvable")
		}

		company, err := settings.LoadCompany(cfg.UploadPath)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paramètres inaccessibles")
		}

		// Reste dû après ce paiement: somme des paiements jusqu'à celui-ci inclus
		var paidUpTo float64
		if err := database.DB.Model(&models.Payment{}).
			Where("order_id = ? AND id <= ?", id, paymentID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paidUpTo).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paiements inaccessibles")
		}
		remaining := o.Total - paidUpTo
		if remaining < 0 {
			remaining = 0
		}

		clientNom := "Client occasionnel"
		if o.Client != nil {
			clientNom = strings.TrimSpace(o.Client.Prenom + " " + o.Client.Nom)
		}

		numero := fmt.Sprintf("%s-P%03d", o.Numero, payment.ID)
		r := &Receipt{
			Numero:      numero,
			OrderNumero: o.Numero,
			Date:        payment.CreatedAt,
			ClientNom:   clientNom,
			Amount:      payment.Amount,
			Mode:        string(payment.Mode),
			Remaining:   remaining,
			Company:     company,
		}

		dir := receiptDir(cfg.UploadPath, o.Numero)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Génération du reçu impossible")
		}
		pngPath := filepath.Join(dir, "recu-"+numero+".png")
		pdfPath := filepath.Join(dir, "recu-"+numero+".pdf")

		if err := RenderReceiptPNG(r, pngPath); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError,
				"Génération du reçu impossible: "+err.Error())
		}
		if err := PNGToPDF(pngPath, pdfPath); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError,
				"Génération du reçu impossible: "+err.Error())
		}

		if c.QueryBool("inline", false) {
			return c.SendFile(pdfPath)
		}
		return c.Download(pdfPath, "recu-"+numero+".pdf")
	}
}

func relPath(base, full string) string {
	rel, err := filepath.Rel(base, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}
