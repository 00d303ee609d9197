package models

import "time"

type NotificationType string

const (
	NotificationOrderCreated NotificationType = "commande_creee"
	NotificationPayment      NotificationType = "paiement_recu"
	NotificationLowStock     NotificationType = "stock_bas"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Message   string           `gorm:"size:255;not null" json:"message"`
	EntityID  *uint            `json:"entity_id"`
	Read      bool             `gorm:"not null;default:false" json:"lu"`
	CreatedAt time.Time        `json:"created_at"`
}
