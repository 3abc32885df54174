package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/config"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/dimitrije/medportal-api/internal/directory"
	"github.com/dimitrije/medportal-api/internal/handlers"
	"github.com/dimitrije/medportal-api/internal/hub"
	"github.com/dimitrije/medportal-api/internal/identity"
	authmw "github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/obs"
	"github.com/dimitrije/medportal-api/internal/policy"
	"github.com/dimitrije/medportal-api/internal/services"
	"github.com/dimitrije/medportal-api/internal/session"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := obs.InitLogger(cfg.IsProduction())
	obs.Init()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := directory.NewPGStore(db)
	users := directory.NewUsers(store)
	courses := directory.NewCourses(store)
	blobs := blob.NewPGStore(db, cfg.BaseURL)

	local := hub.NewHub()
	go local.Run(ctx)

	var events hub.Publisher = local
	if cfg.Redis.URL != "" {
		rdb, err := hub.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rdb.Close()

		relay := hub.NewRedisRelay(rdb, cfg.Redis.Channel, local, logger)
		ready := make(chan struct{})
		go func() {
			if err := relay.Run(ctx, ready); err != nil && ctx.Err() == nil {
				logger.Error("credential relay stopped", "error", err)
			}
		}()
		<-ready
		events = relay
	}

	emailService := services.NewEmailService(cfg.SMTP, logger)
	if !emailService.IsConfigured() {
		logger.Warn("SMTP is not configured, password reset emails will not be sent")
	}

	jwtService := identity.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	identityService := identity.NewService(db, jwtService, events, local, emailService, identity.Options{
		MinPasswordLength: cfg.MinPasswordLength,
		ResetExpiry:       cfg.PasswordResetExpiry,
		ResetURL:          cfg.FrontendURL,
	}, logger)
	resolver := session.NewResolver(users)

	accountService := services.NewAccountService(identityService, users, logger)
	userAdminService := services.NewUserAdminService(users, identityService, logger)
	courseService := services.NewCourseService(courses, blobs, cfg.MaxUploadBytes, logger)

	authHandler := handlers.NewAuthHandler(accountService, identityService)
	userHandler := handlers.NewUserHandler(userAdminService)
	sessionHandler := handlers.NewSessionHandler(resolver, identityService, cfg.SessionTimeout, logger)
	courseHandler := handlers.NewCourseHandler(courseService)
	fileHandler := handlers.NewFileHandler(blobs)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParserWithConfig(middleware.BodyParserConfig{MaxBodySize: cfg.MaxRequestBytes}))

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/signin", authHandler.SignIn)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/password-reset", authHandler.RequestPasswordReset)
	auth.Post("/password-reset/confirm", authHandler.ConfirmPasswordReset)

	optional := api.Group("")
	optional.Use(authmw.OptionalAuth(identityService, resolver))
	optional.Get("/session", sessionHandler.Get)
	optional.Get("/session/events", sessionHandler.Events)
	optional.Get("/session/ws", sessionHandler.Socket)

	protected := api.Group("")
	protected.Use(authmw.Auth(identityService, resolver))
	protected.Post("/auth/logout-all", authHandler.LogoutAll)
	protected.Get("/users/me", userHandler.GetMe)

	gated := api.Group("")
	gated.Use(authmw.Auth(identityService, resolver))
	gated.Use(authmw.Require(policy.ActionViewGatedContent))
	gated.Get("/courses", courseHandler.List)
	gated.Get("/courses/:courseId", courseHandler.Get)
	gated.Get("/files/:folder/:name", fileHandler.Download)

	manageUsers := api.Group("/admin")
	manageUsers.Use(authmw.Auth(identityService, resolver))
	manageUsers.Use(authmw.Require(policy.ActionManageUsers))
	manageUsers.Get("/users", userHandler.List)
	manageUsers.Get("/users/:uid", userHandler.Get)
	manageUsers.Patch("/users/:uid/approval", userHandler.SetApproval)
	manageUsers.Delete("/users/:uid", userHandler.Delete)

	manageCourses := api.Group("/admin")
	manageCourses.Use(authmw.Auth(identityService, resolver))
	manageCourses.Use(authmw.Require(policy.ActionManageCourses))
	manageCourses.Post("/courses", courseHandler.Create)
	manageCourses.Patch("/courses/:courseId", courseHandler.Update)
	manageCourses.Delete("/courses/:courseId/attachments", courseHandler.RemoveAttachment)

	api.Get("/health", func(c *drift.Context) {
		if err := db.Pool.Ping(c.Request.Context()); err != nil {
			_ = c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	app.Get("/metrics", func(c *drift.Context) {
		obs.Handler().ServeHTTP(c.Response, c.Request)
		c.Abort()
	})

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := identityService.Tokens().CleanupExpired(ctx); err != nil {
					logger.Warn("failed to clean up expired tokens", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info("server starting", "addr", addr)
		if err := app.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
}
