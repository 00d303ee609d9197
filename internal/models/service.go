package models

import "time"

// Service: prestation facturable, sans notion de stock.
type Service struct {
	ID           uint    `gorm:"primaryKey"`
	Nom          string  `gorm:"size:150;not null"`
	Description  string  `gorm:"size:255"`
	PrixUnitaire float64 `gorm:"not null"`
	Actif        bool    `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time `gorm:"index"`
}
