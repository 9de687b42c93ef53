package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/faithconnect/internal/config"
	"github.com/example/faithconnect/internal/database"
	"github.com/example/faithconnect/internal/events"
	"github.com/example/faithconnect/internal/middleware"
	"github.com/example/faithconnect/internal/routes"
	"github.com/example/faithconnect/internal/services"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect(cfg.Database)

	delivery := routes.Delivery{
		SMS:    smsSender(cfg),
		Email:  emailSender(cfg),
		Events: events.Discard{},
	}

	var producer *events.Producer
	if cfg.Kafka.Enabled() {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Username, cfg.Kafka.Password)
		delivery.Events = producer
		log.Printf("[Kafka] publishing campaign events to %s", cfg.Kafka.Topic)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.AllowOrigins,
		AllowHeaders: "Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.Register(app, db, cfg, delivery)

	go func() {
		log.Printf("Starting server on :%s", cfg.App.Port)
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(cfg.App.ShutdownTimeout); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("[Kafka] close error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func smsSender(cfg *config.Config) services.SMSSender {
	twilio := services.NewTwilioService(cfg.Twilio.BaseURL, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
	if twilio.Configured() || !cfg.App.IsDevelopment() {
		return twilio
	}
	log.Println("[SMS] Twilio not configured, logging messages instead")
	return services.LogSender{}
}

func emailSender(cfg *config.Config) services.EmailSender {
	resend := services.NewResendService(cfg.Resend.BaseURL, cfg.Resend.APIKey, cfg.Resend.From)
	if resend.Configured() || !cfg.App.IsDevelopment() {
		return resend
	}
	log.Println("[Email] Resend not configured, logging messages instead")
	return services.LogSender{}
}
