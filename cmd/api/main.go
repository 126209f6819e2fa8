package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/database"
	"catalog-api/internal/logger"
	"catalog-api/internal/media"
	"catalog-api/internal/repository"
	"catalog-api/internal/server"
	"catalog-api/internal/service"
	"catalog-api/internal/tracing"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func gracefulShutdown(ctx context.Context, stop context.CancelFunc, apiServer *server.Server, shutdownTracing tracing.ShutdownFunc, logger *zap.Logger, done chan bool) {
	// Listen for the interrupt signal.
	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 30 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Close server resources
	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting catalog API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize database
	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database health check", zap.Any("health", dbService.Health(ctx)))

	// Run migrations
	if err := database.RunMigrations(ctx, dbService.DB(), database.MigrationSource(cfg.Database.MigrationsDir), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	if cfg.Database.SeedSample {
		if _, err := database.SeedSampleData(ctx, dbService.DB(), log); err != nil {
			log.Fatal("Failed to seed sample data", zap.Error(err))
		}
	}

	if cfg.Auth.Enabled {
		if err := ensureAdmin(ctx, cfg, dbService, log); err != nil {
			log.Fatal("Failed to prepare admin account", zap.Error(err))
		}
	}

	pipeline, err := media.NewPipeline(cfg.Media, log)
	if err != nil {
		log.Fatal("Failed to prepare upload directories", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// rate limiting fails open, so an unreachable Redis is not fatal
			log.Warn("Redis unreachable, write requests will not be rate limited", zap.Error(err))
		}
	}

	// Create server
	srv := server.NewServer(cfg, log, dbService, pipeline, redisClient)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(ctx, stop, srv, shutdownTracing, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete")
}

func ensureAdmin(ctx context.Context, cfg *config.Config, dbService database.Service, log *zap.Logger) error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET must be set when AUTH_ENABLED is true")
	}
	if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
		log.Warn("ADMIN_USERNAME or ADMIN_PASSWORD not set, using existing admin accounts only")
		return nil
	}

	authService := service.NewAuthService(
		repository.NewAdminRepository(dbService.DB()),
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpiry)*time.Minute,
	)
	created, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("Created admin account", zap.String("username", cfg.Auth.AdminUsername))
	}
	return nil
}
