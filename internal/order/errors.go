package order

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError: entrée malformée ou hors bornes. Jamais réessayée.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// LockedOrderError: modification structurelle refusée, un paiement existe
// ou le statut est terminal.
type LockedOrderError struct {
	OrderID uint
	Reason  string
}

func (e *LockedOrderError) Error() string {
	return fmt.Sprintf("commande %d verrouillée: %s", e.OrderID, e.Reason)
}

// StockExceededError: quantité demandée au-dessus du plafond disponible.
// Max est le plafond calculé pour que l'appelant puisse corriger.
type StockExceededError struct {
	ProductID uint
	Requested int
	Max       int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("stock insuffisant pour le produit %d: demandé %d, maximum %d", e.ProductID, e.Requested, e.Max)
}

// NotFoundError: référence inexistante (commande, produit, service, client).
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d introuvable", e.Entity, e.ID)
}

// HTTPError convertit une erreur métier en erreur fiber. Les erreurs
// inconnues restent telles quelles pour le handler d'erreur global.
func HTTPError(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.NewError(fiber.StatusBadRequest, ve.Reason)
	}
	var le *LockedOrderError
	if errors.As(err, &le) {
		return fiber.NewError(fiber.StatusConflict, le.Error())
	}
	var se *StockExceededError
	if errors.As(err, &se) {
		return fiber.NewError(fiber.StatusBadRequest, se.Error())
	}
	var ne *NotFoundError
	if errors.As(err, &ne) {
		return fiber.NewError(fiber.StatusNotFound, ne.Error())
	}
	return err
}
