package models

import "time"

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "EN_COURS"
	SaleStatusCompleted SaleStatus = "TERMINEE"
	SaleStatusCancelled SaleStatus = "ANNULEE"
)

// Sale (vente): enregistrement de vente, optionnellement rattaché à une commande.
// Les articles sont dénormalisés (nom et prix figés au moment de la vente).
type Sale struct {
	ID        uint   `gorm:"primaryKey"`
	Numero    string `gorm:"size:30;uniqueIndex;not null"`
	OrderID   *uint  `gorm:"index"`
	Order     *Order
	UserID    *uint `gorm:"index"`
	User      *User
	Amount    float64    `gorm:"not null"`
	Status    SaleStatus `gorm:"size:20;not null;default:'EN_COURS'"`
	Items     []SaleItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SaleItem struct {
	ID           uint `gorm:"primaryKey"`
	SaleID       uint `gorm:"index;not null"`
	ProductID    *uint
	ServiceID    *uint
	Nom          string  `gorm:"size:150;not null"`
	Quantity     int     `gorm:"not null"`
	PrixUnitaire float64 `gorm:"not null"`
	Total        float64 `gorm:"not null"`
	CreatedAt    time.Time
}
