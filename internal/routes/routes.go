package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/faithconnect/internal/campaign"
	"github.com/example/faithconnect/internal/config"
	"github.com/example/faithconnect/internal/events"
	"github.com/example/faithconnect/internal/handlers"
	"github.com/example/faithconnect/internal/identity"
	"github.com/example/faithconnect/internal/middleware"
	"github.com/example/faithconnect/internal/models"
	"github.com/example/faithconnect/internal/repository"
	"github.com/example/faithconnect/internal/services"
	"github.com/example/faithconnect/internal/utils"
)

// Delivery holds the outbound adapters chosen at startup.
type Delivery struct {
	SMS    services.SMSSender
	Email  services.EmailSender
	Events events.Publisher
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, delivery Delivery) {
	// Initialize Telegram service
	telegramService := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID)

	accounts := repository.NewAccountRepository(db)
	businesses := repository.NewBusinessRepository(db)
	campaigns := repository.NewCampaignRepository(db)
	notifications := repository.NewNotificationRepository(db)

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access connection pool: %v", err)
	}
	leaderboard := repository.NewLeaderboard(sqlDB, "postgres")

	jwtIssuer := utils.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	dispatcher := services.NewCodeDispatcher(delivery.SMS, delivery.Email, cfg.OTP.DispatchTimeout, cfg.OTP.TTL)
	notifier := services.NewNotificationService(notifications, delivery.SMS, delivery.Email, cfg.Notify.Timeout)
	engine := campaign.NewEngine(campaigns, notifier, delivery.Events, telegramService)
	identityService := identity.NewService(accounts, dispatcher, jwtIssuer, identity.Options{
		CodeTTL:           cfg.OTP.TTL,
		MaxAttempts:       cfg.OTP.MaxAttempts,
		HashCost:          cfg.OTP.HashCost,
		RequestsPerMinute: cfg.OTP.RequestsPerMinute,
		Burst:             cfg.OTP.Burst,
	})

	authHandler := handlers.NewAuthHandler(identityService, businesses)
	profileHandler := handlers.NewProfileHandler(accounts, businesses)
	businessHandler := handlers.NewBusinessHandler(businesses, accounts, engine, notifier, telegramService)
	campaignHandler := handlers.NewCampaignHandler(campaigns, businesses, leaderboard, engine)
	notificationHandler := handlers.NewNotificationHandler(notifications)
	adminHandler := handlers.NewAdminHandler(db)

	requireAuth := middleware.AuthMiddleware(jwtIssuer)
	churchAdmin := middleware.RequireUserType(accounts, models.UserTypeChurchAdmin, models.UserTypeSystemAdmin)
	systemAdmin := middleware.RequireUserType(accounts, models.UserTypeSystemAdmin)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/resend", authHandler.Resend)
	auth.Post("/verify", authHandler.Verify)
	auth.Post("/refresh", authHandler.Refresh)

	api.Get("/profile", requireAuth, profileHandler.GetProfile)
	api.Patch("/profile", requireAuth, profileHandler.UpdateProfile)

	// Businesses. The /mine routes must be registered before /:id.
	businessRoutes := api.Group("/businesses")
	businessRoutes.Post("/", requireAuth, businessHandler.CreateBusiness)
	mine := businessRoutes.Group("/mine", requireAuth)
	mine.Get("/", businessHandler.GetMyBusiness)
	mine.Put("/", businessHandler.UpdateMyBusiness)
	mine.Get("/limits", businessHandler.GetLimits)
	mine.Get("/stats", businessHandler.GetStats)
	mine.Post("/products", businessHandler.AddProduct)
	mine.Delete("/products/:id", businessHandler.DeleteProduct)
	mine.Post("/services", businessHandler.AddService)
	mine.Delete("/services/:id", businessHandler.DeleteService)
	businessRoutes.Get("/:id", businessHandler.GetBusiness)
	businessRoutes.Post("/:id/reviews", requireAuth, businessHandler.AddReview)

	// Campaigns
	api.Get("/campaigns", campaignHandler.ListActive)
	api.Get("/campaigns/:id/leaderboard", campaignHandler.Leaderboard)
	api.Get("/campaigns/:id/progress", requireAuth, campaignHandler.GetProgress)
	api.Get("/rewards/mine", requireAuth, campaignHandler.MyRewards)
	api.Get("/featured", campaignHandler.ListFeatured)

	// Notifications
	inbox := api.Group("/notifications", requireAuth)
	inbox.Get("/", notificationHandler.List)
	inbox.Post("/read-all", notificationHandler.MarkAllRead)
	inbox.Get("/preferences", notificationHandler.GetPreferences)
	inbox.Put("/preferences", notificationHandler.UpdatePreferences)
	inbox.Post("/:id/read", notificationHandler.MarkRead)

	// Admin routes
	admin := api.Group("/admin", requireAuth)
	admin.Get("/stats", churchAdmin, adminHandler.DashboardStats)
	admin.Post("/businesses/:id/verify", churchAdmin, businessHandler.VerifyBusiness)
	admin.Post("/campaigns", systemAdmin, campaignHandler.CreateCampaign)
	admin.Post("/campaigns/:id/actions", systemAdmin, campaignHandler.AddAction)
	admin.Post("/campaigns/:id/rewards", systemAdmin, campaignHandler.AddReward)
	admin.Patch("/campaigns/:id/status", systemAdmin, campaignHandler.SetStatus)
}
