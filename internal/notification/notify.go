package notification

import (
	"log"

	"realtech-backend/internal/database"
	"realtech-backend/internal/models"
)

// Notify persiste une notification "données modifiées". Remplace le bus
// d'évènements global du SPA: les clients interrogent la liste.
// L'échec n'est jamais bloquant pour l'opération métier.
func Notify(kind models.NotificationType, message string, entityID *uint) {
	n := models.Notification{
		Type:     kind,
		Message:  message,
		EntityID: entityID,
	}
	if err := database.DB.Create(&n).Error; err != nil {
		log.Printf("Notification non enregistrée: %v", err)
	}
}
