package models

import "time"

type Client struct {
	ID        uint   `gorm:"primaryKey"`
	Nom       string `gorm:"size:100;not null"`
	Prenom    string `gorm:"size:100"`
	Email     string `gorm:"size:100;index"`
	Telephone string `gorm:"size:30"`
	Adresse   string `gorm:"size:255"`
	Actif     bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time `gorm:"index"`
}
