package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/talkdigital/courtshoesbackend/config"
	"github.com/talkdigital/courtshoesbackend/database"
	"github.com/talkdigital/courtshoesbackend/handlers"
	"github.com/talkdigital/courtshoesbackend/realtime"
	"github.com/talkdigital/courtshoesbackend/repository"
	"github.com/talkdigital/courtshoesbackend/services"
	"github.com/talkdigital/courtshoesbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	db, err := database.InitGormDB(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database schema: %v", err)
	}

	marathonRepo := repository.NewMarathonRepository(db)
	detectionRepo := repository.NewDetectionRepository(db)
	metricRepo := repository.NewMetricRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	inviteCodeRepo := repository.NewGormInviteCodeRepository(db)

	metricsService := services.NewMetricsService(metricRepo, detectionRepo, marathonRepo)

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing import worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImportWorkers, cfg.ImportQueueSize)
	importProcessor := workers.NewImportProcessor(cfg, marathonRepo, detectionRepo, metricsService, hub)

	log.Printf("Using %s database", cfg.DatabaseType)
	if cfg.DatabaseType == config.DBTypeSQLite {
		log.Printf("Database file: %s", cfg.DatabasePath)
	}

	r := chi.NewRouter()

	allowedOrigins := strings.Split(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"), ",")
	corsOptions := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	authHandler := handlers.NewAuthHandler(cfg, userRepo, inviteCodeRepo)
	adminUserHandler := handlers.NewAdminUserHandler(userRepo)
	adminInviteCodeHandler := handlers.NewAdminInviteCodeHandler(inviteCodeRepo)
	reportHandler := handlers.NewReportHandler(cfg, metricsService, marathonRepo)
	marathonHandler := handlers.NewMarathonHandler(marathonRepo, detectionRepo, metricsService, importProcessor, reportHandler)
	importProcessor.InvalidateReports = reportHandler.Invalidate
	csvHandler := handlers.NewCSVAnalysisHandler()

	jwtSecret := []byte(cfg.JWTSecret)
	authOnly := func(next http.Handler) http.Handler {
		return handlers.AuthMiddleware(userRepo, jwtSecret, next)
	}
	adminOnly := func(next http.Handler) http.Handler {
		return handlers.AuthMiddleware(userRepo, jwtSecret, handlers.RequireAdmin(next))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.With(authOnly).Get("/me", authHandler.CurrentUser)
			r.With(authOnly).Put("/me", authHandler.UpdateEmail)
			r.With(authOnly).Put("/me/password", authHandler.UpdatePassword)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)
			r.Route("/users", func(r chi.Router) {
				r.Get("/", adminUserHandler.ListUsers)
				r.Post("/", adminUserHandler.CreateUser)
				r.Route("/{user_id}", func(r chi.Router) {
					r.Get("/", adminUserHandler.GetUser)
					r.Put("/", adminUserHandler.UpdateUser)
					r.Delete("/", adminUserHandler.DeleteUser)
				})
			})
			r.Route("/invite_codes", func(r chi.Router) {
				r.Get("/", adminInviteCodeHandler.ListInviteCodes)
				r.Post("/", adminInviteCodeHandler.CreateInviteCode)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", adminInviteCodeHandler.GetInviteCode)
					r.Put("/", adminInviteCodeHandler.UpdateInviteCode)
					r.Delete("/", adminInviteCodeHandler.DeleteInviteCode)
				})
			})
		})

		r.Route("/marathons", func(r chi.Router) {
			r.Use(authOnly)
			r.Post("/", marathonHandler.CreateMarathon)
			r.Get("/", marathonHandler.ListMarathons)
			r.Route("/{marathon_id}", func(r chi.Router) {
				r.Get("/", marathonHandler.GetMarathon)
				r.Delete("/", marathonHandler.DeleteMarathon)
				r.Get("/images", marathonHandler.ListImages)
				r.Post("/import", marathonHandler.ImportDetections)
				r.Post("/metrics/recompute", marathonHandler.RecomputeMetrics)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(authOnly)
			r.Get("/summary", reportHandler.Summary)
			r.Get("/individual", reportHandler.Individual)
		})

		r.With(authOnly).Post("/analysis/csv", csvHandler.Analyze)
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
