package models

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusValidated OrderStatus = "VALIDE"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "NON_PAYEE"
	PaymentStatusPartial PaymentStatus = "PARTIELLE"
	PaymentStatusPaid    PaymentStatus = "PAYEE"
)

// lockedStatuses: statuts terminaux, toute modification structurelle est refusée.
var lockedStatuses = []string{"VALIDE", "VALIDEE", "CONFIRMEE", "TERMINEE", "LIVREE", "ACHEVEE"}

// IsLockedStatus compare le statut à la liste des statuts terminaux (insensible à la casse).
func IsLockedStatus(s OrderStatus) bool {
	up := strings.ToUpper(strings.TrimSpace(string(s)))
	for _, l := range lockedStatuses {
		if up == l {
			return true
		}
	}
	return false
}

// Order (commande): racine de l'agrégat, porte les lignes produits/services
// et cumule les paiements.
type Order struct {
	ID            uint   `gorm:"primaryKey"`
	Code          string `gorm:"size:30;uniqueIndex;not null"`
	Numero        string `gorm:"size:30;index;not null"`
	ClientID      *uint  `gorm:"index"` // nil = client occasionnel
	Client        *Client
	UserID        *uint `gorm:"index"`
	User          *User
	Total         float64       `gorm:"not null;default:0"`
	Status        OrderStatus   `gorm:"size:20;not null;default:'PENDING'"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;default:'NON_PAYEE'"`
	AmountPaid    float64       `gorm:"not null;default:0"`
	OrderDate     time.Time     `gorm:"index;not null"`
	Actif         bool          `gorm:"not null;default:true"`
	Products      []OrderProduct
	Services      []OrderService
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time `gorm:"index"`
}

// HasPayment: dès qu'un paiement existe, la commande est verrouillée en édition.
func (o *Order) HasPayment() bool {
	return o.AmountPaid > 0 ||
		o.PaymentStatus == PaymentStatusPaid ||
		o.PaymentStatus == PaymentStatusPartial
}

// Outstanding: reste à payer, jamais négatif.
func (o *Order) Outstanding() float64 {
	rest := o.Total - o.AmountPaid
	if rest < 0 {
		return 0
	}
	return rest
}

// OrderProduct: ligne produit d'une commande. Le prix total est figé au prix
// unitaire du produit au moment de la création/modification de la ligne.
type OrderProduct struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int     `gorm:"not null"`
	LineTotal float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderService: même forme qu'une ligne produit, sans contrainte de stock.
type OrderService struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"index;not null"`
	ServiceID uint `gorm:"index;not null"`
	Service   Service
	Quantity  int     `gorm:"not null"`
	LineTotal float64 `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
