package order

import (
	"fmt"
	"testing"

	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("ouverture sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migration: %v", err)
	}
	return db
}

func makeProduct(t *testing.T, db *gorm.DB, nom string, prix float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Nom: nom, PrixUnitaire: prix, StockActuel: stock, Actif: true}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("création produit: %v", err)
	}
	return p
}

func makeService(t *testing.T, db *gorm.DB, nom string, prix float64) models.Service {
	t.Helper()
	s := models.Service{Nom: nom, PrixUnitaire: prix, Actif: true}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("création service: %v", err)
	}
	return s
}

func makeClient(t *testing.T, db *gorm.DB, nom string) models.Client {
	t.Helper()
	cl := models.Client{Nom: nom, Actif: true}
	if err := db.Create(&cl).Error; err != nil {
		t.Fatalf("création client: %v", err)
	}
	return cl
}

func countMovements(t *testing.T, db *gorm.DB, productID uint, typ models.StockMovementType) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.StockMovement{}).
		Where("product_id = ? AND type = ?", productID, typ).
		Count(&n).Error; err != nil {
		t.Fatalf("comptage mouvements: %v", err)
	}
	return n
}

func reloadProduct(t *testing.T, db *gorm.DB, id uint) models.Product {
	t.Helper()
	var p models.Product
	if err := db.First(&p, id).Error; err != nil {
		t.Fatalf("relecture produit: %v", err)
	}
	return p
}
