package models

import "time"

type StockMovementType string

const (
	StockMovementIn         StockMovementType = "ENTREE"
	StockMovementOut        StockMovementType = "SORTIE"
	StockMovementAdjustment StockMovementType = "AJUSTEMENT"
)

// StockMovement: trace chaque débit/crédit de stock. Les mutations de lignes
// de commande écrivent leur mouvement dans la même transaction.
type StockMovement struct {
	ID        uint `gorm:"primaryKey"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Type      StockMovementType `gorm:"size:20;not null"`
	Quantity  int               `gorm:"not null"` // toujours positif, le sens est porté par Type
	Motif     string            `gorm:"size:255"`
	OrderID   *uint             `gorm:"index"`
	UserID    *uint
	CreatedAt time.Time
}
