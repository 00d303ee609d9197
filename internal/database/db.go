package database

import (
	"log"

	"realtech-backend/internal/config"
	"realtech-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Connexion à la base impossible: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Erreur AutoMigrate: %v", err)
	}

	log.Println("Base de données connectée. Migration terminée.")
}

// Migrate applique le schéma. Extraite pour que les tests puissent migrer
// une base sqlite en mémoire.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Product{},
		&models.Service{},
		&models.Order{},
		&models.OrderProduct{},
		&models.OrderService{},
		&models.Payment{},
		&models.Sale{},
		&models.SaleItem{},
		&models.StockMovement{},
		&models.Task{},
		&models.Notification{},
		&models.AuditLog{},
	)
}
