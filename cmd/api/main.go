package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"appointmenthub_backend/internal/controller"
	"appointmenthub_backend/internal/middleware"
	"appointmenthub_backend/internal/model"
	"appointmenthub_backend/pkg/config"
	"appointmenthub_backend/pkg/cron"
	"appointmenthub_backend/pkg/database"
	"appointmenthub_backend/pkg/easysms"
	"appointmenthub_backend/pkg/seed"
	"appointmenthub_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	api := app.Group("/api", middleware.Transaction())

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Public browse
	api.Get("/stores", controller.ListStores)
	api.Get("/stores/slug/:slug", controller.GetStoreBySlug)
	api.Get("/stores/:store_id/services", controller.ListStoreServices)
	api.Get("/services/:id", controller.GetService)
	api.Post("/services/:id/calculate-price", controller.CalculateServicePrice)
	api.Get("/subscription-plans", controller.ListPlans)

	// Provider webhooks (verified by signature, not by JWT)
	api.Post("/stripe-webhook", controller.StripeWebhook)
	api.Post("/easysms-webhook", controller.EasySMSWebhook)

	// Protected routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.Me)

	// Stores
	protected.Post("/stores", middleware.RequireRole(model.RoleAdmin), controller.CreateStore)
	protected.Put("/stores/:id", controller.UpdateStore)
	protected.Delete("/stores/:id", middleware.RequireRole(model.RoleAdmin), controller.DeleteStore)
	protected.Post("/stores/:id/photos", controller.AddStorePhoto)
	protected.Delete("/stores/:id/photos", controller.RemoveStorePhoto)
	protected.Post("/stores/:id/photos/upload", controller.UploadStorePhoto)
	protected.Get("/my-store", middleware.RequireRole(model.RoleStoreManager), controller.MyStore)

	// Services
	protected.Post("/stores/:store_id/services",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.CreateService)
	protected.Put("/services/:id",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.UpdateService)
	protected.Delete("/services/:id",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.DeleteService)

	// Bookings
	protected.Get("/bookings", controller.ListBookings)
	protected.Get("/bookings/calendar", controller.BookingsCalendar)
	protected.Get("/bookings/:id", controller.GetBooking)
	protected.Post("/bookings", controller.CreateBooking)
	protected.Put("/bookings/:id", controller.UpdateBooking)
	protected.Post("/bookings/:id/cancel", controller.CancelBooking)
	protected.Post("/bookings/:id/confirm",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.ConfirmBooking)
	protected.Get("/stores/:store_id/bookings",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.ListStoreBookings)

	// Payments
	protected.Get("/payments", controller.ListPayments)
	protected.Get("/payments/:id", controller.GetPayment)
	protected.Post("/bookings/:id/create-payment-intent", controller.CreateBookingPaymentIntent)
	protected.Post("/subscriptions/:id/create-payment-intent",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.CreateSubscriptionPaymentIntent)
	protected.Post("/payments/:id/refund",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.RefundPayment)

	// Subscription plans (admin management)
	protected.Post("/subscription-plans", middleware.RequireRole(model.RoleAdmin), controller.CreatePlan)
	protected.Put("/subscription-plans/:id", middleware.RequireRole(model.RoleAdmin), controller.UpdatePlan)
	protected.Delete("/subscription-plans/:id", middleware.RequireRole(model.RoleAdmin), controller.DeletePlan)

	// Subscriptions
	protected.Get("/subscriptions",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.ListSubscriptions)
	protected.Get("/subscriptions/:id",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.GetSubscription)
	protected.Post("/subscriptions/:id/cancel",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.CancelSubscription)
	protected.Post("/subscriptions/:id/upgrade",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.UpgradeSubscription)
	protected.Get("/stores/:store_id/subscriptions",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.ListStoreSubscriptions)
	protected.Post("/stores/:store_id/subscribe",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.Subscribe)
	protected.Get("/my-subscription", middleware.RequireRole(model.RoleStoreManager), controller.MySubscription)

	// Notifications
	protected.Get("/notifications", controller.ListNotifications)
	protected.Get("/notifications/:id", controller.GetNotification)
	protected.Post("/notifications",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.CreateNotification)
	protected.Post("/bookings/:id/send-confirmation",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.SendBookingConfirmation)
	protected.Post("/bookings/:id/send-reminder",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.SendBookingReminder)

	// Users
	protected.Get("/users",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.ListUsers)
	protected.Post("/users", middleware.RequireRole(model.RoleAdmin), controller.CreateUser)
	protected.Get("/users/:id", controller.GetUser)
	protected.Put("/users/:id", controller.UpdateUser)
	protected.Delete("/users/:id", controller.DeleteUser)

	// Dashboard
	protected.Get("/dashboard/stats", controller.DashboardStats)
	protected.Get("/dashboard/analytics/bookings",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.BookingAnalytics)
	protected.Get("/dashboard/analytics/revenue",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.RevenueAnalytics)

	// Calendars
	protected.Get("/stores/:store_id/calendars", controller.ListStoreCalendars)
	protected.Post("/stores/:store_id/calendars",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.CreateCalendar)
	protected.Get("/calendars/:id/slots", controller.ListCalendarSlots)
	protected.Post("/stores/:store_id/calendly/sync",
		middleware.RequireRole(model.RoleStoreManager, model.RoleAdmin), controller.SyncCalendlyCalendars)
}

func main() {
	cfg := config.Load()

	if cfg.EasySMS.APIKey != "" {
		if err := easysms.InitService(cfg.EasySMS.APIKey, cfg.EasySMS.BaseURL, cfg.EasySMS.Sender); err != nil {
			log.Fatal("Could not initialize EasySMS service:", err)
		}
		log.Println("EasySMS service initialized")
	} else {
		log.Println("EASYSMS_API_KEY not set, notifications will not be dispatched")
	}

	if cfg.Storage.S3Bucket != "" {
		if err := storage.InitStorage(cfg.Storage); err != nil {
			log.Fatal("Could not initialize storage:", err)
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = cfg.Database.DSN()
	}
	database.InitDB(dbURL)

	err := database.MigrateDatabase(
		&model.User{},
		&model.Store{},
		&model.Service{},
		&model.Booking{},
		&model.Payment{},
		&model.SubscriptionPlan{},
		&model.Subscription{},
		&model.Notification{},
		&model.Calendar{},
		&model.CalendarSlot{},
		&model.WebhookEvent{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	if err := seed.SeedPlans(database.GetDB()); err != nil {
		log.Printf("Seed warning: %v", err)
	}
	if cfg.SeedDemo {
		if err := seed.SeedDemoAdmin(database.GetDB()); err != nil {
			log.Printf("Seed warning: %v", err)
		}
	}

	cron.InitBookingReminderCron()
	cron.InitSubscriptionExpiryCron()

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
