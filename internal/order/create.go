package order

import (
	"fmt"
	"strings"
	"time"

	"realtech-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineRequest: entrée de création de commande, un référentiel + une quantité.
type LineRequest struct {
	ID       uint `json:"id"`
	Quantity int  `json:"quantite"`
}

// CreateRequest: pas de diff à la création, les lignes arrivent en deux
// tableaux (produits, services).
type CreateRequest struct {
	ClientID *uint         `json:"client_id"`
	Products []LineRequest `json:"produits"`
	Services []LineRequest `json:"services"`
}

// Create crée la commande et ses lignes dans une transaction, débite le
// stock et fige les prix au prix courant des référentiels.
func Create(db *gorm.DB, req CreateRequest, userID *uint) (*models.Order, error) {
	if len(req.Products) == 0 && len(req.Services) == 0 {
		return nil, &ValidationError{Reason: "ajoutez au moins un article"}
	}

	var orderID uint

	err := db.Transaction(func(tx *gorm.DB) error {
		if req.ClientID != nil {
			var client models.Client
			if err := tx.First(&client, *req.ClientID).Error; err != nil {
				return &NotFoundError{Entity: "client", ID: *req.ClientID}
			}
		}

		o := models.Order{
			Code:          newOrderCode(),
			Numero:        "", // attribué après insertion, dérivé de l'id
			ClientID:      req.ClientID,
			UserID:        userID,
			Status:        models.OrderStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
			OrderDate:     time.Now(),
			Actif:         true,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		orderID = o.ID

		numero := fmt.Sprintf("CMD-%06d", o.ID)
		if err := tx.Model(&o).Update("numero", numero).Error; err != nil {
			return err
		}

		for _, l := range req.Products {
			if l.Quantity <= 0 {
				return &ValidationError{Reason: "la quantité doit être supérieure à 0"}
			}
			var prod models.Product
			if err := tx.First(&prod, l.ID).Error; err != nil {
				return &NotFoundError{Entity: "produit", ID: l.ID}
			}
			if err := debitStock(tx, prod.ID, l.Quantity, o.ID, userID,
				fmt.Sprintf("Commande %s", o.Code)); err != nil {
				return err
			}
			line := models.OrderProduct{
				OrderID:   o.ID,
				ProductID: prod.ID,
				Quantity:  l.Quantity,
				LineTotal: prod.PrixUnitaire * float64(l.Quantity),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		for _, l := range req.Services {
			if l.Quantity <= 0 {
				return &ValidationError{Reason: "la quantité doit être supérieure à 0"}
			}
			var svc models.Service
			if err := tx.First(&svc, l.ID).Error; err != nil {
				return &NotFoundError{Entity: "service", ID: l.ID}
			}
			line := models.OrderService{
				OrderID:   o.ID,
				ServiceID: svc.ID,
				Quantity:  l.Quantity,
				LineTotal: svc.PrixUnitaire * float64(l.Quantity),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		return recomputeTotal(tx, o.ID)
	})
	if err != nil {
		return nil, err
	}

	return Fetch(db, orderID)
}

// SoftDelete archive la commande: deletedat posé, statut forcé à CANCELLED,
// le stock des lignes produits est recrédité.
func SoftDelete(db *gorm.DB, orderID uint, userID *uint) (*models.Order, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Preload("Products").First(&o, orderID).Error; err != nil {
			return &NotFoundError{Entity: "commande", ID: orderID}
		}
		if o.DeletedAt != nil {
			return &ValidationError{Reason: "commande déjà supprimée"}
		}
		if o.HasPayment() {
			return &LockedOrderError{OrderID: o.ID, Reason: "un paiement a déjà été enregistré"}
		}

		for _, line := range o.Products {
			if err := creditStock(tx, line.ProductID, line.Quantity, o.ID, userID,
				fmt.Sprintf("Commande %s annulée", o.Code)); err != nil {
				return err
			}
		}

		now := time.Now()
		return tx.Model(&o).Updates(map[string]interface{}{
			"deleted_at": &now,
			"status":     models.OrderStatusCancelled,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return Fetch(db, orderID)
}

// Restore annule la suppression: deletedat effacé, le stock des lignes est
// re-débité (échoue si le stock a été consommé entre temps).
func Restore(db *gorm.DB, orderID uint, userID *uint) (*models.Order, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Preload("Products").First(&o, orderID).Error; err != nil {
			return &NotFoundError{Entity: "commande", ID: orderID}
		}
		if o.DeletedAt == nil {
			return &ValidationError{Reason: "cette commande n'est pas supprimée"}
		}

		for _, line := range o.Products {
			if err := debitStock(tx, line.ProductID, line.Quantity, o.ID, userID,
				fmt.Sprintf("Commande %s restaurée", o.Code)); err != nil {
				return err
			}
		}

		return tx.Model(&o).Updates(map[string]interface{}{
			"deleted_at": nil,
			"status":     models.OrderStatusPending,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return Fetch(db, orderID)
}

func newOrderCode() string {
	return "CMD-" + strings.ToUpper(uuid.NewString()[:8])
}
