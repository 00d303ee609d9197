package task

import (
	"strings"
	"time"

	"realtech-backend/internal/auth"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type taskRequest struct {
	Titre       string     `json:"titre"`
	Description string     `json:"description"`
	Statut      string     `json:"statut"`
	UserID      *uint      `json:"user_id"`
	DueDate     *time.Time `json:"due_date"`
}

type taskResponse struct {
	ID          uint       `json:"id"`
	Titre       string     `json:"titre"`
	Description string     `json:"description"`
	Statut      string     `json:"statut"`
	UserID      *uint      `json:"user_id"`
	UserNom     string     `json:"user_nom,omitempty"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toResponse(t *models.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Titre:       t.Titre,
		Description: t.Description,
		Statut:      string(t.Status),
		UserID:      t.UserID,
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.User != nil {
		resp.UserNom = strings.TrimSpace(t.User.Prenom + " " + t.User.Nom)
	}
	return resp
}

func parseStatus(s string) (models.TaskStatus, bool) {
	switch models.TaskStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case models.TaskStatusTodo:
		return models.TaskStatusTodo, true
	case models.TaskStatusInProgress:
		return models.TaskStatusInProgress, true
	case models.TaskStatusDone:
		return models.TaskStatusDone, true
	}
	return "", false
}

// GET /api/taches?statut=&user_id=
func ListTasksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Task{}).Preload("User")
		if statut := c.Query("statut"); statut != "" {
			st, ok := parseStatus(statut)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "Statut inconnu: "+statut)
			}
			dbq = dbq.Where("status = ?", st)
		}
		if userID := c.QueryInt("user_id", 0); userID > 0 {
			dbq = dbq.Where("user_id = ?", userID)
		}

		var tasks []models.Task
		if err := dbq.Order("created_at desc").Find(&tasks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâches inaccessibles")
		}

		out := make([]taskResponse, 0, len(tasks))
		for i := range tasks {
			out = append(out, toResponse(&tasks[i]))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// GET /api/taches/my — tâches de l'utilisateur connecté.
func MyTasksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid := auth.CurrentUserID(c)
		if uid == 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "Utilisateur non identifié")
		}

		var tasks []models.Task
		if err := database.DB.Preload("User").
			Where("user_id = ?", uid).
			Order("created_at desc").
			Find(&tasks).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâches inaccessibles")
		}

		out := make([]taskResponse, 0, len(tasks))
		for i := range tasks {
			out = append(out, toResponse(&tasks[i]))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// GET /api/taches/:id
func GetTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var t models.Task
		if err := database.DB.Preload("User").First(&t, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tâche introuvable")
		}
		return c.JSON(fiber.Map{"data": toResponse(&t)})
	}
}

// POST /api/taches
func CreateTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req taskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}
		if strings.TrimSpace(req.Titre) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Le titre est obligatoire")
		}

		t := models.Task{
			Titre:       strings.TrimSpace(req.Titre),
			Description: strings.TrimSpace(req.Description),
			Status:      models.TaskStatusTodo,
			UserID:      req.UserID,
			DueDate:     req.DueDate,
		}
		if req.Statut != "" {
			st, ok := parseStatus(req.Statut)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "Statut inconnu: "+req.Statut)
			}
			t.Status = st
		}
		if err := database.DB.Create(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâche non enregistrée")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&t)})
	}
}

// PUT /api/taches/:id
func UpdateTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var t models.Task
		if err := database.DB.First(&t, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tâche introuvable")
		}

		var req taskRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if strings.TrimSpace(req.Titre) != "" {
			t.Titre = strings.TrimSpace(req.Titre)
		}
		t.Description = strings.TrimSpace(req.Description)
		t.UserID = req.UserID
		t.DueDate = req.DueDate
		if req.Statut != "" {
			st, ok := parseStatus(req.Statut)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "Statut inconnu: "+req.Statut)
			}
			if st == models.TaskStatusDone && t.Status != models.TaskStatusDone {
				now := time.Now()
				t.CompletedAt = &now
			}
			if st != models.TaskStatusDone {
				t.CompletedAt = nil
			}
			t.Status = st
		}

		if err := database.DB.Save(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâche non mise à jour")
		}

		return c.JSON(fiber.Map{"data": toResponse(&t)})
	}
}

// POST /api/taches/:id/complete
func CompleteTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var t models.Task
		if err := database.DB.First(&t, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tâche introuvable")
		}
		if t.Status == models.TaskStatusDone {
			return c.JSON(fiber.Map{"data": toResponse(&t)})
		}

		now := time.Now()
		t.Status = models.TaskStatusDone
		t.CompletedAt = &now
		if err := database.DB.Save(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâche non mise à jour")
		}

		return c.JSON(fiber.Map{"data": toResponse(&t)})
	}
}

// DELETE /api/taches/:id
func DeleteTaskHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		res := database.DB.Delete(&models.Task{}, id)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tâche non supprimée")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Tâche introuvable")
		}

		return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
	}
}
