package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skillSnapAPI/handlers"
	"skillSnapAPI/internal/gemini"
	"skillSnapAPI/internal/notification"
	"skillSnapAPI/middleware"
	"skillSnapAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool           *pgxpool.Pool
	settingsService  *services.SettingsService
	generatorService *services.GeneratorService
	challengeService *services.ChallengeService
	scheduler        *services.ReminderScheduler
	fcmService       *notification.FCMService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to Postgres")

	settingsService = services.NewSettingsService(dbPool)

	// The generator runs fallback-only if Gemini is not configured.
	var llm services.TextGenerator
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		client, err := gemini.NewClient(ctx, apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Printf("Warning: Could not initialize Gemini, using fallback challenges only: %v", err)
		} else {
			llm = client
			log.Println("Gemini client initialized successfully")
		}
	} else {
		log.Println("Warning: GEMINI_API_KEY not set, using fallback challenges only")
	}
	generatorService = services.NewGeneratorService(llm)

	scheduler = services.NewReminderScheduler(dbPool)
	challengeService = services.NewChallengeService(dbPool, generatorService, scheduler)
	scheduler.SetChallengeSource(challengeService)

	fcmService, err = notification.NewFCMService("./serviceAccountKey.json")
	if err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		scheduler.SetPushProvider(fcmService)
		log.Println("FCM Push Provider initialized successfully")
	}

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	// Initialize handlers
	var pushProvider services.PushProvider
	if fcmService != nil {
		pushProvider = fcmService
	}
	deviceHandler := handlers.NewDeviceHandler(settingsService, pushProvider)
	userHandler := handlers.NewUserHandler(settingsService, scheduler)
	challengeHandler := handlers.NewChallengeHandler(challengeService)

	// Reminders are in-memory, so bring them back for existing users.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := scheduler.RestoreDailyReminders(ctx); err != nil {
			log.Printf("Warning: failed to restore daily reminders: %v", err)
		}
		cancel()
	}

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	r.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "skillsnap-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/device/register", deviceHandler.RegisterDevice).Methods("POST")

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.DeviceAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetSettings).Methods("GET")
	protected.HandleFunc("/user", userHandler.UpdateSettings).Methods("PUT")
	protected.HandleFunc("/user", userHandler.DeleteAccount).Methods("DELETE")

	protected.HandleFunc("/device/push-token", deviceHandler.UpdatePushToken).Methods("POST")
	protected.HandleFunc("/notifications/test", deviceHandler.SendTestNotification).Methods("POST")

	protected.HandleFunc("/challenges/generate", challengeHandler.GenerateChallenges).Methods("POST")
	protected.HandleFunc("/challenges", challengeHandler.GetChallenges).Methods("GET")
	protected.HandleFunc("/challenges/next", challengeHandler.GetNextChallenge).Methods("GET")
	protected.HandleFunc("/challenges/progress", challengeHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/challenges/active-skill", challengeHandler.SetActiveSkill).Methods("PUT")
	protected.HandleFunc("/challenges/{id}/complete", challengeHandler.MarkComplete).Methods("POST")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	scheduler.Stop()

	log.Println("Server shutdown complete")
}
