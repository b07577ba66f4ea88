package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	events "ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
)

type publisher interface {
	events.Publisher
	Close() error
}

func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, bunDB *bun.DB, log *logger.Logger) error {
	if cfg.SchemaMode == config.SchemaMigrate && cfg.Driver == config.DriverPostgres {
		log.Info("MIGRATE", "Running embedded migrations")
		return migrations.NewRunner(cfg.URL, log).Up()
	}
	log.Info("DATABASE", "Creating tables if absent")
	return database.EnsureSchema(ctx, bunDB)
}

func newPublisher(cfg config.KafkaConfig, log *logger.Logger) publisher {
	if !cfg.Enabled {
		log.Info("KAFKA", "Notifications disabled")
		return kafka.NoopPublisher{}
	}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, cfg.Topics.All(), log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topics exist: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Publishing to %v", cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, log)
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	appLogger, err := logger.NewLogger(logger.Options{
		Service:  "event-service",
		Dir:      cfg.Log.Dir,
		MinLevel: logger.ParseLevel(cfg.Log.Level),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Close()

	if envErr != nil {
		appLogger.Warn("CONFIG", "No .env file found, using environment")
	}

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg.Database, bunDB, appLogger); err != nil {
		appLogger.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	pub := newPublisher(cfg.Kafka, appLogger)
	defer pub.Close()

	store := &db.DB{Bun: bunDB}
	handler := event_api.NewHandler(
		events.NewEventService(store, pub, cfg.Kafka.Topics, appLogger),
		events.NewAttendeeService(store, pub, cfg.Kafka.Topics, appLogger),
		store,
		appLogger,
		cfg.Upload.MaxBytes,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.Middleware())
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	handler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("SERVER", fmt.Sprintf("🚀 Event Service on :%s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("SERVER", fmt.Sprintf("Shutdown error: %v", err))
	}
	appLogger.Info("SERVER", "✅ Event service shutdown complete")
}
