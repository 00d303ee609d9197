package main

import (
	"log"
	"strings"

	"realtech-backend/internal/audit"
	"realtech-backend/internal/auth"
	"realtech-backend/internal/client"
	"realtech-backend/internal/config"
	"realtech-backend/internal/dashboard"
	"realtech-backend/internal/database"
	"realtech-backend/internal/inventory"
	"realtech-backend/internal/invoice"
	"realtech-backend/internal/models"
	"realtech-backend/internal/notification"
	"realtech-backend/internal/order"
	"realtech-backend/internal/product"
	"realtech-backend/internal/sale"
	"realtech-backend/internal/service"
	"realtech-backend/internal/settings"
	"realtech-backend/internal/task"
	"realtech-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Erreur inattendue:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Erreur serveur inattendue",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Auth public
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Tout le reste exige un token
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Clients
	protected.Get("/clients", client.ListClientsHandler())
	protected.Get("/clients/:id", client.GetClientHandler())
	protected.Post("/clients", client.CreateClientHandler())
	protected.Put("/clients/:id", client.UpdateClientHandler())
	protected.Delete("/clients/:id", client.DeleteClientHandler())

	// Produits
	protected.Get("/produits", product.ListProductsHandler())
	protected.Get("/produits/:id", product.GetProductHandler())
	protected.Post("/produits", product.CreateProductHandler())
	protected.Put("/produits/:id", product.UpdateProductHandler())
	protected.Delete("/produits/:id", product.DeleteProductHandler())

	// Services
	protected.Get("/services", service.ListServicesHandler())
	protected.Get("/services/:id", service.GetServiceHandler())
	protected.Post("/services", service.CreateServiceHandler())
	protected.Put("/services/:id", service.UpdateServiceHandler())
	protected.Delete("/services/:id", service.DeleteServiceHandler())

	// Commandes
	protected.Get("/commandes", order.ListOrdersHandler())
	protected.Get("/commandes/:id", order.GetOrderHandler())
	protected.Post("/commandes", order.CreateOrderHandler())
	protected.Put("/commandes/:id", order.UpdateOrderHandler())
	protected.Delete("/commandes/:id", order.DeleteOrderHandler())
	protected.Post("/commandes/:id/restore", order.RestoreOrderHandler())

	// Lignes de commandes
	protected.Post("/commandes/:id/produits", order.AddProductLineHandler())
	protected.Put("/commandes/:id/produits/:itemId", order.UpdateProductLineHandler())
	protected.Delete("/commandes/:id/produits/:itemId", order.DeleteProductLineHandler())
	protected.Post("/commandes/:id/services", order.AddServiceLineHandler())
	protected.Put("/commandes/:id/services/:itemId", order.UpdateServiceLineHandler())
	protected.Delete("/commandes/:id/services/:itemId", order.DeleteServiceLineHandler())

	// Paiements
	protected.Post("/commandes/:id/paiement", order.PayOrderHandler())
	protected.Get("/commandes/:id/paiements", order.ListPaymentsHandler())
	protected.Get("/commandes/:id/paiements/:paymentId/recu", invoice.DownloadReceiptHandler(cfg))

	// Factures
	protected.Post("/commandes/:id/invoice", invoice.GenerateInvoiceHandler(cfg))
	protected.Get("/commandes/:id/invoice/download", invoice.DownloadInvoiceHandler(cfg))

	// Ventes
	protected.Get("/ventes", sale.ListSalesHandler())
	protected.Get("/ventes/:id", sale.GetSaleHandler())
	protected.Post("/ventes", sale.CreateSaleHandler())
	protected.Put("/ventes/:id", sale.UpdateSaleHandler())
	protected.Post("/ventes/:id/annuler", sale.CancelSaleHandler())

	// Inventaire
	protected.Get("/inventaire", inventory.ListMovementsHandler())
	protected.Post("/inventaire", inventory.CreateMovementHandler())

	// Tâches
	protected.Get("/taches", task.ListTasksHandler())
	protected.Get("/taches/my", task.MyTasksHandler())
	protected.Get("/taches/:id", task.GetTaskHandler())
	protected.Post("/taches", task.CreateTaskHandler())
	protected.Put("/taches/:id", task.UpdateTaskHandler())
	protected.Post("/taches/:id/complete", task.CompleteTaskHandler())
	protected.Delete("/taches/:id", task.DeleteTaskHandler())

	// Dashboard
	protected.Get("/dashboard/stats", dashboard.StatsHandler())
	protected.Get("/dashboard/top-products", dashboard.TopProductsHandler())
	protected.Get("/dashboard/recent-activity", dashboard.RecentActivityHandler())

	// Notifications
	protected.Get("/notifications", notification.ListNotificationsHandler())
	protected.Post("/notifications/:id/read", notification.MarkReadHandler())

	// Administration
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Get("/users", user.ListUsersHandler())
	adminRoutes.Get("/users/stats", user.UserStatsHandler())
	adminRoutes.Post("/users", user.CreateUserHandler())
	adminRoutes.Put("/users/:id", user.UpdateUserHandler())
	adminRoutes.Delete("/users/:id", user.DeleteUserHandler())

	adminRoutes.Get("/settings/company", settings.GetCompanyHandler(cfg))
	adminRoutes.Put("/settings/company", settings.UpdateCompanyHandler(cfg))
	adminRoutes.Post("/settings/logo", settings.UploadLogoHandler(cfg))

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Serveur démarré sur le port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
