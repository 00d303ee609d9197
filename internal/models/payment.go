package models

import "time"

type PaymentMode string

const (
	PaymentModeCash        PaymentMode = "cash"
	PaymentModeMobileMoney PaymentMode = "mobile_money"
	PaymentModeCard        PaymentMode = "carte"
	PaymentModeCheck       PaymentMode = "cheque"
	PaymentModeTransfer    PaymentMode = "virement"
)

// ValidPaymentMode vérifie le mode contre l'énumération fixe.
func ValidPaymentMode(m PaymentMode) bool {
	switch m {
	case PaymentModeCash, PaymentModeMobileMoney, PaymentModeCard, PaymentModeCheck, PaymentModeTransfer:
		return true
	}
	return false
}

// Payment: paiement enregistré contre une commande. Jamais modifié ni supprimé.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	Order     Order
	Amount    float64     `gorm:"not null"`
	Mode      PaymentMode `gorm:"size:20;not null"`
	CreatedAt time.Time
}
