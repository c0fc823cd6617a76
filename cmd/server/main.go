package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xokuso/peluquerias-app-sub003/internal/auth"
	"github.com/xokuso/peluquerias-app-sub003/internal/cache"
	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	"github.com/xokuso/peluquerias-app-sub003/internal/db"
	"github.com/xokuso/peluquerias-app-sub003/internal/handler"
	"github.com/xokuso/peluquerias-app-sub003/internal/mail"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
	"github.com/xokuso/peluquerias-app-sub003/internal/router"
	"github.com/xokuso/peluquerias-app-sub003/internal/service"
	"github.com/xokuso/peluquerias-app-sub003/internal/stripeclient"
)

// @title Peluquerias Provisioning API
// @version 1.0
// @description Post-payment provisioning service: Stripe webhook ingestion, auto-login tokens, fallback reconciliation, and admin Stripe sync.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// .env is optional; the environment wins when both are present.
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; auto-login consumption will fail until it is configured")
	}

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Template{},
		&model.Order{},
		&model.Payment{},
		&model.AutoLoginToken{},
		&model.Notification{},
		&model.WebhookEvent{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	stripeClient := stripeclient.NewAPIClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)
	templateRepo := repository.NewTemplateRepository(gormDB)
	tokenRepo := repository.NewTokenRepository(gormDB)
	notificationRepo := repository.NewNotificationRepository(gormDB)
	webhookEventRepo := repository.NewWebhookEventRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Initialize services
	autoLoginService := service.NewAutoLoginService(tokenRepo, userRepo, jwtService)
	provisioningService := service.NewProvisioningService(
		userRepo, orderRepo, templateRepo, webhookEventRepo, notificationRepo,
		autoLoginService, sender, cacheClient,
	)
	fallbackService := service.NewFallbackService(
		stripeClient, userRepo, orderRepo, templateRepo, notificationRepo, autoLoginService,
	)
	syncService := service.NewSyncService(stripeClient, userRepo, orderRepo, paymentRepo, templateRepo)
	authService := service.NewAuthService(userRepo, jwtService)
	templateService := service.NewTemplateService(templateRepo, cacheClient)

	// Initialize handlers
	webhookHandler := handler.NewWebhookHandler(stripeClient, provisioningService, cfg)
	autoLoginHandler := handler.NewAutoLoginHandler(autoLoginService, fallbackService, cfg)
	authHandler := handler.NewAuthHandler(authService, cfg)
	templateHandler := handler.NewTemplateHandler(templateService)
	syncHandler := handler.NewSyncHandler(syncService)

	// Register routes
	router.Register(
		e,
		cfg,
		webhookHandler,
		autoLoginHandler,
		authHandler,
		templateHandler,
		syncHandler,
	)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
