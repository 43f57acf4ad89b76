package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"eventboard/config"
	"eventboard/internal/adapters/auth"
	"eventboard/internal/adapters/email"
	"eventboard/internal/adapters/stats"
	httpdelivery "eventboard/internal/delivery/http"
	"eventboard/internal/delivery/http/controllers"
	"eventboard/internal/delivery/http/middleware"
	"eventboard/internal/repository/postgres"
	"eventboard/internal/services"
)

// @title Eventboard API
// @version 1.0
// @description Event publication and participation request service.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "err", err)
		os.Exit(1)
	}

	eventRepo := postgres.NewEventRepository(db)
	requestRepo := postgres.NewRequestRepository(db)
	userRepo := postgres.NewUserRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	transactor := postgres.NewTransactor(db)

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	statsClient := stats.NewHTTPClient(cfg.StatsServerURL, &http.Client{Timeout: 5 * time.Second})

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mailer.Provider,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		SES: email.SESConfig{
			Region:          cfg.Mailer.SESRegion,
			AccessKeyID:     cfg.Mailer.SESAccessKeyID,
			SecretAccessKey: cfg.Mailer.SESSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	renderer := email.NewTemplateRenderer()

	const serviceTimeout = 10 * time.Second
	emailService := services.NewEmailService(mailer, renderer)
	userService := services.NewUserService(userRepo, hasher, issuer, cfg.AdminEmails, cfg.TokenExpiry, serviceTimeout)
	categoryService := services.NewCategoryService(categoryRepo, eventRepo, serviceTimeout)
	eventService := services.NewEventService(eventRepo, userRepo, categoryRepo, statsClient, transactor, cfg.AppName, serviceTimeout)
	requestService := services.NewRequestService(requestRepo, eventRepo, userRepo, emailService, transactor, serviceTimeout)

	authController := controllers.NewAuthController(logger, userService)
	eventController := controllers.NewEventController(logger, eventService)
	publicEventController := controllers.NewPublicEventController(logger, eventService)
	adminEventController := controllers.NewAdminEventController(logger, eventService)
	requestController := controllers.NewRequestController(logger, requestService)
	categoryController := controllers.NewCategoryController(logger, categoryService)
	adminUserController := controllers.NewAdminUserController(logger, userService)

	mux := httpdelivery.NewRouter(
		authController,
		eventController,
		publicEventController,
		adminEventController,
		requestController,
		categoryController,
		adminUserController,
		middleware.RequireAuth(verifier, logger),
		middleware.RequireAdmin(),
	)

	handler := middleware.LoggingMiddleware(logger, middleware.CORS(cfg.AllowedOrigins, mux))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
