package models

import "time"

type Product struct {
	ID           uint    `gorm:"primaryKey"`
	Nom          string  `gorm:"size:150;not null"`
	Code         string  `gorm:"size:50;index"` // code article (recherche rapide)
	Description  string  `gorm:"size:255"`
	PrixUnitaire float64 `gorm:"not null"`
	StockActuel  int     `gorm:"not null;default:0"`
	Actif        bool    `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time `gorm:"index"`
}
