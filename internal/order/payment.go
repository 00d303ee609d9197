package order

import (
	"fmt"
	"math"

	"realtech-backend/internal/models"

	"gorm.io/gorm"
)

// centTolerance: tolérance de précision monétaire pour les comparaisons.
const centTolerance = 0.01

// ApplyPayment enregistre un paiement contre une commande et fait évoluer
// son statut de paiement. Le statut déclaré par l'appelant est validé
// contre l'arithmétique du solde, mais le statut persisté est recalculé
// depuis la somme des paiements, jamais repris tel quel.
func ApplyPayment(db *gorm.DB, orderID uint, amount float64, mode models.PaymentMode, declared models.PaymentStatus) (*models.Order, *models.Payment, error) {
	if amount <= 0 {
		return nil, nil, &ValidationError{Reason: "le montant doit être supérieur à 0"}
	}
	if !models.ValidPaymentMode(mode) {
		return nil, nil, &ValidationError{Reason: "mode de paiement invalide (cash|mobile_money|carte|cheque|virement)"}
	}
	if declared != models.PaymentStatusPaid && declared != models.PaymentStatusPartial {
		return nil, nil, &ValidationError{Reason: "statut_paiement doit être PAYEE ou PARTIELLE"}
	}

	var payment models.Payment

	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.First(&o, orderID).Error; err != nil {
			return &NotFoundError{Entity: "commande", ID: orderID}
		}
		if o.DeletedAt != nil {
			return &ValidationError{Reason: "impossible de régler une commande supprimée"}
		}

		rest := o.Outstanding()
		if rest <= centTolerance {
			return &ValidationError{Reason: "cette commande est déjà entièrement réglée"}
		}
		if amount > rest+centTolerance {
			return &ValidationError{Reason: fmt.Sprintf("le montant ne peut pas dépasser le reste à payer (%.2f)", rest)}
		}
		if declared == models.PaymentStatusPaid && math.Abs(amount-rest) > centTolerance {
			return &ValidationError{Reason: fmt.Sprintf("pour un paiement total, le montant doit être exactement %.2f", rest)}
		}
		if declared == models.PaymentStatusPartial && amount >= rest-centTolerance {
			return &ValidationError{Reason: fmt.Sprintf("pour un paiement partiel, le montant doit être strictement inférieur à %.2f", rest)}
		}

		payment = models.Payment{
			OrderID: o.ID,
			Amount:  amount,
			Mode:    mode,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		// Cumul recalculé depuis la table des paiements, source de vérité
		var paid float64
		if err := tx.Model(&models.Payment{}).
			Where("order_id = ?", o.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}

		status := models.PaymentStatusUnpaid
		switch {
		case paid >= o.Total-centTolerance:
			status = models.PaymentStatusPaid
		case paid > 0:
			status = models.PaymentStatusPartial
		}

		return tx.Model(&o).Updates(map[string]interface{}{
			"amount_paid":    paid,
			"payment_status": status,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	o, err := Fetch(db, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, &payment, nil
}
