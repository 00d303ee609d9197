package user

import (
	"fmt"
	"strings"
	"time"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/auth"
	"realtech-backend/internal/database"
	"realtech-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type userRequest struct {
	Nom      string `json:"nom"`
	Prenom   string `json:"prenom"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Actif    *bool  `json:"actif"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Nom       string    `json:"nom"`
	Prenom    string    `json:"prenom"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Actif     bool      `json:"actif"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Nom:       u.Nom,
		Prenom:    u.Prenom,
		Email:     u.Email,
		Role:      string(u.Role),
		Actif:     u.Actif,
		CreatedAt: u.CreatedAt,
	}
}

func parseRole(s string) (models.UserRole, bool) {
	switch models.UserRole(strings.ToLower(strings.TrimSpace(s))) {
	case models.RoleAdmin:
		return models.RoleAdmin, true
	case models.RoleEmployee:
		return models.RoleEmployee, true
	}
	return "", false
}

// GET /api/users — admin uniquement (imposé au routage).
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("nom asc, prenom asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateurs inaccessibles")
		}
		out := make([]userResponse, 0, len(users))
		for i := range users {
			out = append(out, toResponse(&users[i]))
		}
		return c.JSON(fiber.Map{"data": out})
	}
}

// GET /api/users/stats
func UserStatsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var total, actifs, admins int64
		database.DB.Model(&models.User{}).Count(&total)
		database.DB.Model(&models.User{}).Where("actif = ?", true).Count(&actifs)
		database.DB.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins)

		return c.JSON(fiber.Map{
			"data": fiber.Map{
				"total":    total,
				"actifs":   actifs,
				"admins":   admins,
				"employes": total - admins,
			},
		})
	}
}

// POST /api/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Nom) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nom, email et mot de passe obligatoires")
		}
		if len(req.Password) < 8 {
			return fiber.NewError(fiber.StatusBadRequest, "Le mot de passe doit faire au moins 8 caractères")
		}
		role, ok := parseRole(req.Role)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Rôle invalide (admin|employe)")
		}

		var count int64
		database.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "Cet email est déjà utilisé")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Impossible de hasher le mot de passe")
		}

		u := models.User{
			Nom:          strings.TrimSpace(req.Nom),
			Prenom:       strings.TrimSpace(req.Prenom),
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         role,
			Actif:        true,
		}
		if err := database.DB.Create(&u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateur non créé")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "utilisateur", EntityID: u.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Création de l'utilisateur %s", u.Email),
			After:       toResponse(&u),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": toResponse(&u)})
	}
}

// PUT /api/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}

		var u models.User
		if err := database.DB.First(&u, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}
		before := toResponse(&u)

		var req userRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Corps de requête invalide")
		}

		if strings.TrimSpace(req.Nom) != "" {
			u.Nom = strings.TrimSpace(req.Nom)
		}
		u.Prenom = strings.TrimSpace(req.Prenom)
		if req.Email != "" {
			email := strings.TrimSpace(strings.ToLower(req.Email))
			var count int64
			database.DB.Model(&models.User{}).
				Where("email = ? AND id <> ?", email, u.ID).Count(&count)
			if count > 0 {
				return fiber.NewError(fiber.StatusConflict, "Cet email est déjà utilisé")
			}
			u.Email = email
		}
		if req.Role != "" {
			role, ok := parseRole(req.Role)
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "Rôle invalide (admin|employe)")
			}
			u.Role = role
		}
		if req.Password != "" {
			if len(req.Password) < 8 {
				return fiber.NewError(fiber.StatusBadRequest, "Le mot de passe doit faire au moins 8 caractères")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Impossible de hasher le mot de passe")
			}
			u.PasswordHash = string(hash)
		}
		if req.Actif != nil {
			// On ne se désactive pas soi-même
			if !*req.Actif && auth.CurrentUserID(c) == u.ID {
				return fiber.NewError(fiber.StatusBadRequest, "Impossible de désactiver votre propre compte")
			}
			u.Actif = *req.Actif
		}

		if err := database.DB.Save(&u).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateur non mis à jour")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "utilisateur", EntityID: u.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Modification de l'utilisateur %s", u.Email),
			Before:      before,
			After:       toResponse(&u),
		})

		return c.JSON(fiber.Map{"data": toResponse(&u)})
	}
}

// DELETE /api/users/:id — désactivation, jamais de suppression physique.
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Identifiant invalide")
		}
		if auth.CurrentUserID(c) == uint(id) {
			return fiber.NewError(fiber.StatusBadRequest, "Impossible de supprimer votre propre compte")
		}

		var u models.User
		if err := database.DB.First(&u, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Utilisateur introuvable")
		}

		if err := database.DB.Model(&u).Update("actif", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Utilisateur non désactivé")
		}

		uid, name := audit.Actor(c)
		_ = audit.WriteLog(audit.LogOptions{
			UserID: uid, UserName: name,
			EntityType: "utilisateur", EntityID: u.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Désactivation de l'utilisateur %s", u.Email),
			Before:      toResponse(&u),
		})

		return c.JSON(fiber.Map{"data": fiber.Map{"id": u.ID}})
	}
}
