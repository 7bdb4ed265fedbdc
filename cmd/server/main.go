package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/collagesync/server/internal/config"
	"github.com/collagesync/server/internal/handlers"
	"github.com/collagesync/server/internal/middleware"
	"github.com/collagesync/server/internal/observability"
	"github.com/collagesync/server/internal/presence"
	"github.com/collagesync/server/internal/repository"
	"github.com/collagesync/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.GetLogger()

	ctx := context.Background()
	telemetry, err := observability.Initialize(ctx, observability.NewConfig("collagesync-server", serviceVersion))
	if err != nil {
		logger.Warnf("telemetry init failed: %v", err)
	}

	// Database
	var (
		db     *sql.DB
		driver string
	)
	if cfg.UsePostgres() {
		logger.Info("using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		driver = repository.DriverPostgres
	} else {
		logger.Info("using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		driver = repository.DriverSQLite
	}
	defer db.Close()

	// Repositories
	photoRepo := repository.NewPhotoRepository(db, driver)
	albumRepo := repository.NewAlbumRepository(db, driver)
	albumPhotoRepo := repository.NewAlbumPhotoRepository(db, driver)
	collageItemRepo := repository.NewCollageItemRepository(db, driver)
	userRepo := repository.NewUserRepository(db, driver)

	// Services
	hashService := services.NewHashService()
	storageService, err := services.NewPhotoStorageService(
		cfg.PhotoStorage.BasePath,
		cfg.PhotoStorage.AllowedExtensions,
		cfg.PhotoStorage.MaxFileSizeMB,
	)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	exifService := services.NewEXIFService()
	thumbnailService := services.NewThumbnailService(cfg.PhotoStorage.BasePath)

	authService := services.NewAuthService(
		userRepo,
		cfg.Auth.WhitelistEmails,
		cfg.Auth.GoogleClientID,
		cfg.Auth.GoogleClientSecret,
		cfg.Auth.GoogleRedirectURL,
		cfg.Auth.JWTSecret,
		cfg.Auth.SessionDurationHours,
	)

	hub := services.NewWebSocketHub()
	go hub.Run()

	collageService := services.NewCollageService(collageItemRepo, photoRepo, albumRepo, albumPhotoRepo, hub)
	exportService := services.NewExportService(collageItemRepo, photoRepo, storageService, thumbnailService)

	// Presence is optional; a nil manager no-ops every call
	var presenceManager *presence.Manager
	if cfg.Presence.RedisAddr != "" {
		presenceManager, err = presence.NewManager(ctx, cfg.Presence.RedisAddr, cfg.Presence.RedisPassword, cfg.Presence.RedisDB)
		if err != nil {
			logger.Warnf("presence disabled, redis unreachable: %v", err)
			presenceManager = nil
		} else {
			defer presenceManager.Close()
		}
	}

	metrics, err := observability.NewBusinessMetrics()
	if err != nil {
		logger.Warnf("business metrics unavailable: %v", err)
		metrics = nil
	}
	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		logger.Warnf("http metrics unavailable: %v", err)
		httpMetrics = nil
	}

	// Handlers
	photoHandler := handlers.NewPhotoHandler(photoRepo, storageService, hashService, exifService, thumbnailService, hub)
	albumHandler := handlers.NewAlbumHandler(albumRepo, albumPhotoRepo, photoRepo)
	collageHandler := handlers.NewCollageHandler(collageService, exportService, metrics)
	authHandler := handlers.NewAuthHandler(authService, metrics)
	userHandler := handlers.NewUserHandler(userRepo)
	wsHandler := handlers.NewWebSocketHandler(hub, collageService, presenceManager)
	healthHandler := handlers.NewHealthHandler()

	// Router
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(observability.TracingMiddleware("collagesync-server"))
	if httpMetrics != nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	r.Use(middleware.Auth(authService, userRepo, []string{
		"/health",
		"/api/health",
		"/api/auth/google",
		"/api/auth/google/callback",
		"/api/auth/login",
		"/api/auth/logout",
		"/swagger/*",
	}))

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/google", authHandler.GoogleSignIn)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/password", authHandler.SetPassword)
		r.Post("/rotate-key", authHandler.RotateKey)
		r.Get("/me", authHandler.Me)
	})

	r.Route("/api/photos", func(r chi.Router) {
		r.Post("/upload", photoHandler.Upload)
		r.Post("/check", photoHandler.CheckHashes)
		r.Get("/", photoHandler.List)
		r.Get("/{id}", photoHandler.GetByID)
		r.Get("/{id}/file", photoHandler.GetFile)
		r.Get("/{id}/thumbnail", photoHandler.GetThumbnail)
		r.Delete("/{id}", photoHandler.Delete)
	})

	r.Route("/api/albums", func(r chi.Router) {
		r.Post("/", albumHandler.Create)
		r.Get("/", albumHandler.List)
		r.Get("/{id}", albumHandler.GetByID)
		r.Put("/{id}", albumHandler.Update)
		r.Delete("/{id}", albumHandler.Delete)
		r.Get("/{id}/photos", albumHandler.ListPhotos)
		r.Post("/{id}/photos", albumHandler.AddPhotos)
		r.Delete("/{id}/photos/{photoId}", albumHandler.RemovePhoto)
		r.Get("/{id}/collage", collageHandler.GetAlbumSnapshot)
		r.Get("/{id}/collage/export", collageHandler.ExportAlbum)
	})

	r.Route("/api/collage", func(r chi.Router) {
		r.Get("/", collageHandler.GetSnapshot)
		r.Get("/export", collageHandler.Export)
		r.Get("/viewers", wsHandler.Viewers)
		r.Post("/items", collageHandler.CreateItem)
		r.Patch("/items/{id}", collageHandler.UpdateItem)
		r.Delete("/items/{id}", collageHandler.DeleteItem)
		r.Post("/items/{id}/front", collageHandler.BringToFront)
		r.Post("/items/{id}/back", collageHandler.SendToBack)
	})

	r.Get("/api/users", userHandler.List)
	r.Get("/api/ws/collage", wsHandler.HandleCollage)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for uploads and exports
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("CollageSync server starting on %s", cfg.ServerAddress)
		logger.Infof("photo storage path: %s", cfg.PhotoStorage.BasePath)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("telemetry shutdown failed: %v", err)
		}
	}

	logger.Info("server stopped")
}
