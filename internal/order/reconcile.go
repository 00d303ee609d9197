package order

import (
	"fmt"
	"strings"

	"realtech-backend/internal/models"

	"gorm.io/gorm"
)

// EditedLine: une ligne telle que saisie dans le formulaire d'édition.
// LineID == 0 marque une ligne nouvellement ajoutée (provisoire).
// ProductID et ServiceID sont exclusifs. UnitPrice est le prix que le
// formulaire connaissait, utilisé en repli si le référentiel n'a pas de prix.
type EditedLine struct {
	LineID    uint
	ProductID uint
	ServiceID uint
	Quantity  int
	UnitPrice float64
}

// EditedOrder: état cible d'une commande après édition.
type EditedOrder struct {
	ClientID *uint
	Lines    []EditedLine
}

type LineAdd struct {
	RefID     uint // produit ou service
	Quantity  int
	UnitPrice float64
	Total     float64
}

type LineUpdate struct {
	LineID    uint
	Quantity  int
	UnitPrice float64
	Total     float64
}

// Plan: opérations minimales pour faire converger l'état persisté vers
// l'état édité. Construit par BuildPlan, appliqué par Apply.
type Plan struct {
	OrderID uint

	AddProducts    []LineAdd
	UpdateProducts []LineUpdate
	DeleteProducts []uint

	AddServices    []LineAdd
	UpdateServices []LineUpdate
	DeleteServices []uint

	ClientChanged bool
	NewClientID   *uint
}

// Empty: vrai quand l'état édité correspond exactement à l'état persisté.
func (p *Plan) Empty() bool {
	return !p.ClientChanged &&
		len(p.AddProducts) == 0 && len(p.UpdateProducts) == 0 && len(p.DeleteProducts) == 0 &&
		len(p.AddServices) == 0 && len(p.UpdateServices) == 0 && len(p.DeleteServices) == 0
}

// Summary: résumé lisible présenté à l'utilisateur avant confirmation.
func (p *Plan) Summary() string {
	var parts []string
	if n := len(p.AddProducts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d produit(s) ajouté(s)", n))
	}
	if n := len(p.UpdateProducts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d produit(s) modifié(s)", n))
	}
	if n := len(p.DeleteProducts); n > 0 {
		parts = append(parts, fmt.Sprintf("%d produit(s) retiré(s)", n))
	}
	if n := len(p.AddServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d service(s) ajouté(s)", n))
	}
	if n := len(p.UpdateServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d service(s) modifié(s)", n))
	}
	if n := len(p.DeleteServices); n > 0 {
		parts = append(parts, fmt.Sprintf("%d service(s) retiré(s)", n))
	}
	if p.ClientChanged {
		parts = append(parts, "client modifié")
	}
	if len(parts) == 0 {
		return "aucune modification"
	}
	return strings.Join(parts, ", ")
}

// CheckEditable: porte métier, refuse toute mutation structurelle dès
// qu'un paiement existe ou que le statut est terminal.
func CheckEditable(o *models.Order) error {
	if o.HasPayment() {
		return &LockedOrderError{OrderID: o.ID, Reason: "un paiement a déjà été enregistré"}
	}
	if models.IsLockedStatus(o.Status) {
		return &LockedOrderError{OrderID: o.ID, Reason: fmt.Sprintf("statut %s définitif", o.Status)}
	}
	return nil
}

// unitPrice: priorité au prix courant du référentiel, puis au prix connu
// de la ligne éditée, enfin au total/quantité de la ligne d'origine.
func unitPrice(current float64, edited float64, origTotal float64, origQty int) float64 {
	if current > 0 {
		return current
	}
	if edited > 0 {
		return edited
	}
	if origQty > 0 {
		return origTotal / float64(origQty)
	}
	return 0
}

// BuildPlan diffe les lignes persistées de la commande contre l'état édité.
// products et services sont les référentiels courants indexés par id, la
// source de vérité des prix et du stock.
func BuildPlan(o *models.Order, edit EditedOrder, products map[uint]models.Product, services map[uint]models.Service) (*Plan, error) {
	if err := CheckEditable(o); err != nil {
		return nil, err
	}

	plan := &Plan{OrderID: o.ID}

	// Changement de client (nil = client occasionnel)
	switch {
	case edit.ClientID == nil && o.ClientID == nil:
	case edit.ClientID != nil && o.ClientID != nil && *edit.ClientID == *o.ClientID:
	default:
		plan.ClientChanged = true
		plan.NewClientID = edit.ClientID
	}

	origProducts := make(map[uint]models.OrderProduct, len(o.Products))
	for _, l := range o.Products {
		origProducts[l.ID] = l
	}
	origServices := make(map[uint]models.OrderService, len(o.Services))
	for _, l := range o.Services {
		origServices[l.ID] = l
	}

	seenProducts := make(map[uint]bool)
	seenServices := make(map[uint]bool)

	for _, line := range edit.Lines {
		if line.Quantity <= 0 {
			return nil, &ValidationError{Reason: "la quantité doit être supérieure à 0"}
		}

		switch {
		case line.LineID != 0 && line.ProductID != 0:
			orig, ok := origProducts[line.LineID]
			if !ok {
				return nil, &NotFoundError{Entity: "ligne produit", ID: line.LineID}
			}
			seenProducts[line.LineID] = true

			prod, hasProd := products[orig.ProductID]
			if hasProd {
				// La ligne éditée a déjà réservé sa quantité d'origine:
				// le plafond est le stock courant plus cette réservation.
				max := prod.StockActuel + orig.Quantity
				if line.Quantity > max {
					return nil, &StockExceededError{ProductID: orig.ProductID, Requested: line.Quantity, Max: max}
				}
			}
			if line.Quantity != orig.Quantity {
				price := unitPrice(productPrice(products, orig.ProductID), line.UnitPrice, orig.LineTotal, orig.Quantity)
				plan.UpdateProducts = append(plan.UpdateProducts, LineUpdate{
					LineID:    line.LineID,
					Quantity:  line.Quantity,
					UnitPrice: price,
					Total:     price * float64(line.Quantity),
				})
			}

		case line.LineID != 0 && line.ServiceID != 0:
			orig, ok := origServices[line.LineID]
			if !ok {
				return nil, &NotFoundError{Entity: "ligne service", ID: line.LineID}
			}
			seenServices[line.LineID] = true

			if line.Quantity != orig.Quantity {
				price := unitPrice(servicePrice(services, orig.ServiceID), line.UnitPrice, orig.LineTotal, orig.Quantity)
				plan.UpdateServices = append(plan.UpdateServices, LineUpdate{
					LineID:    line.LineID,
					Quantity:  line.Quantity,
					UnitPrice: price,
					Total:     price * float64(line.Quantity),
				})
			}

		case line.ProductID != 0:
			prod, ok := products[line.ProductID]
			if !ok {
				return nil, &NotFoundError{Entity: "produit", ID: line.ProductID}
			}
			if line.Quantity > prod.StockActuel {
				return nil, &StockExceededError{ProductID: line.ProductID, Requested: line.Quantity, Max: prod.StockActuel}
			}
			price := unitPrice(prod.PrixUnitaire, line.UnitPrice, 0, 0)
			plan.AddProducts = append(plan.AddProducts, LineAdd{
				RefID:     line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
				Total:     price * float64(line.Quantity),
			})

		case line.ServiceID != 0:
			svc, ok := services[line.ServiceID]
			if !ok {
				return nil, &NotFoundError{Entity: "service", ID: line.ServiceID}
			}
			price := unitPrice(svc.PrixUnitaire, line.UnitPrice, 0, 0)
			plan.AddServices = append(plan.AddServices, LineAdd{
				RefID:     line.ServiceID,
				Quantity:  line.Quantity,
				UnitPrice: price,
				Total:     price * float64(line.Quantity),
			})

		default:
			return nil, &ValidationError{Reason: "chaque ligne doit référencer un produit ou un service"}
		}
	}

	// Lignes présentes à l'origine mais absentes de l'état édité
	for id := range origProducts {
		if !seenProducts[id] {
			plan.DeleteProducts = append(plan.DeleteProducts, id)
		}
	}
	for id := range origServices {
		if !seenServices[id] {
			plan.DeleteServices = append(plan.DeleteServices, id)
		}
	}

	return plan, nil
}

func productPrice(products map[uint]models.Product, id uint) float64 {
	if p, ok := products[id]; ok {
		return p.PrixUnitaire
	}
	return 0
}

func servicePrice(services map[uint]models.Service, id uint) float64 {
	if s, ok := services[id]; ok {
		return s.PrixUnitaire
	}
	return 0
}

// Apply exécute le plan dans UNE transaction: client → suppressions →
// modifications → ajouts → mouvements de stock → recalcul du total, puis
// relit la commande complète comme résultat faisant autorité.
func Apply(db *gorm.DB, plan *Plan, userID *uint) (*models.Order, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Preload("Products").Preload("Services").First(&o, plan.OrderID).Error; err != nil {
			return &NotFoundError{Entity: "commande", ID: plan.OrderID}
		}

		// Re-vérification sous transaction: un paiement a pu arriver entre temps
		if err := CheckEditable(&o); err != nil {
			return err
		}

		if plan.ClientChanged {
			if err := tx.Model(&o).Update("client_id", plan.NewClientID).Error; err != nil {
				return err
			}
		}

		for _, lineID := range plan.DeleteProducts {
			var line models.OrderProduct
			if err := tx.First(&line, lineID).Error; err != nil {
				return &NotFoundError{Entity: "ligne produit", ID: lineID}
			}
			if err := creditStock(tx, line.ProductID, line.Quantity, o.ID, userID,
				fmt.Sprintf("Ligne retirée de la commande %s", o.Code)); err != nil {
				return err
			}
			if err := tx.Delete(&line).Error; err != nil {
				return err
			}
		}
		for _, lineID := range plan.DeleteServices {
			if err := tx.Delete(&models.OrderService{}, lineID).Error; err != nil {
				return err
			}
		}

		for _, up := range plan.UpdateProducts {
			var line models.OrderProduct
			if err := tx.First(&line, up.LineID).Error; err != nil {
				return &NotFoundError{Entity: "ligne produit", ID: up.LineID}
			}
			delta := up.Quantity - line.Quantity
			if delta > 0 {
				if err := debitStock(tx, line.ProductID, delta, o.ID, userID,
					fmt.Sprintf("Quantité augmentée sur la commande %s", o.Code)); err != nil {
					return err
				}
			} else if delta < 0 {
				if err := creditStock(tx, line.ProductID, -delta, o.ID, userID,
					fmt.Sprintf("Quantité réduite sur la commande %s", o.Code)); err != nil {
					return err
				}
			}
			if err := tx.Model(&line).Updates(map[string]interface{}{
				"quantity":   up.Quantity,
				"line_total": up.Total,
			}).Error; err != nil {
				return err
			}
		}
		for _, up := range plan.UpdateServices {
			if err := tx.Model(&models.OrderService{}).Where("id = ?", up.LineID).Updates(map[string]interface{}{
				"quantity":   up.Quantity,
				"line_total": up.Total,
			}).Error; err != nil {
				return err
			}
		}

		for _, add := range plan.AddProducts {
			if err := debitStock(tx, add.RefID, add.Quantity, o.ID, userID,
				fmt.Sprintf("Ligne ajoutée à la commande %s", o.Code)); err != nil {
				return err
			}
			line := models.OrderProduct{
				OrderID:   o.ID,
				ProductID: add.RefID,
				Quantity:  add.Quantity,
				LineTotal: add.Total,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		for _, add := range plan.AddServices {
			line := models.OrderService{
				OrderID:   o.ID,
				ServiceID: add.RefID,
				Quantity:  add.Quantity,
				LineTotal: add.Total,
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

	return Fetch(db, plan.OrderID)
}

// Fetch relit la commande complète avec ses lignes et relations.
func Fetch(db *gorm.DB, orderID uint) (*models.Order, error) {
	var o models.Order
	if err := db.
		Preload("Products.Product").
		Preload("Services.Service").
		Preload("Client").
		Preload("User").
		First(&o, orderID).Error; err != nil {
		return nil, &NotFoundError{Entity: "commande", ID: orderID}
	}
	return &o, nil
}

// recomputeTotal recalcule le total de la commande depuis l'état final des
// lignes et le persiste.
func recomputeTotal(tx *gorm.DB, orderID uint) error {
	var prodTotal, svcTotal float64
	if err := tx.Model(&models.OrderProduct{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(line_total), 0)").
		Scan(&prodTotal).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.OrderService{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(line_total), 0)").
		Scan(&svcTotal).Error; err != nil {
		return err
	}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).
		Update("total", prodTotal+svcTotal).Error
}

// debitStock retire du stock en re-vérifiant le plafond sous transaction,
// et trace le mouvement.
func debitStock(tx *gorm.DB, productID uint, qty int, orderID uint, userID *uint, motif string) error {
	var prod models.Product
	if err := tx.First(&prod, productID).Error; err != nil {
		return &NotFoundError{Entity: "produit", ID: productID}
	}
	if qty > prod.StockActuel {
		return &StockExceededError{ProductID: productID, Requested: qty, Max: prod.StockActuel}
	}
	if err := tx.Model(&prod).Update("stock_actuel", prod.StockActuel-qty).Error; err != nil {
		return err
	}
	mov := models.StockMovement{
		ProductID: productID,
		Type:      models.StockMovementOut,
		Quantity:  qty,
		Motif:     motif,
		OrderID:   &orderID,
		UserID:    userID,
	}
	return tx.Create(&mov).Error
}

func creditStock(tx *gorm.DB, productID uint, qty int, orderID uint, userID *uint, motif string) error {
	var prod models.Product
	if err := tx.First(&prod, productID).Error; err != nil {
		return &NotFoundError{Entity: "produit", ID: productID}
	}
	if err := tx.Model(&prod).Update("stock_actuel", prod.StockActuel+qty).Error; err != nil {
		return err
	}
	mov := models.StockMovement{
		ProductID: productID,
		Type:      models.StockMovementIn,
		Quantity:  qty,
		Motif:     motif,
		OrderID:   &orderID,
		UserID:    userID,
	}
	return tx.Create(&mov).Error
}
