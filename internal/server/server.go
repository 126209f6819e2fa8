package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catalog-api/internal/config"
	"catalog-api/internal/database"
	"catalog-api/internal/media"
	custommiddleware "catalog-api/internal/middleware"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"
	"catalog-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires repositories, services and handlers onto one router.
// A nil redisClient disables rate limiting.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, pipeline *media.Pipeline, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	router.Get("/health", healthHandler(db))

	// Initialize repositories
	categoryRepo := repository.NewCategoryRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())
	adminRepo := repository.NewAdminRepository(db.DB())

	// Initialize services
	categoryService := service.NewCategoryService(categoryRepo, pipeline, logger)
	productService := service.NewProductService(productRepo, categoryRepo, pipeline, logger)

	var limited []func(http.Handler) http.Handler
	if redisClient != nil {
		limited = append(limited, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
			KeyPrefix:         "ratelimit:catalog",
		}, logger))
	}

	writeMiddleware := limited
	if cfg.Auth.Enabled {
		tokenExpiry := time.Duration(cfg.JWT.AccessExpiry) * time.Minute
		authService := service.NewAuthService(adminRepo, cfg.JWT.Secret, tokenExpiry)
		transport.NewAuthHandler(authService, tokenExpiry, logger).RegisterRoutes(router, limited...)

		writeMiddleware = append([]func(http.Handler) http.Handler{
			custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger),
			custommiddleware.RequireRole(service.AdminRole, logger),
		}, limited...)
	}

	// Register routes
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router, writeMiddleware...)
	transport.NewProductHandler(productService, pipeline, logger).RegisterRoutes(router, writeMiddleware...)

	router.Handle(media.FullURLPrefix+"*", http.StripPrefix(media.FullURLPrefix, staticFiles(pipeline.UploadsDir())))
	if cfg.Server.PublicDir != "" {
		router.Handle("/*", staticFiles(cfg.Server.PublicDir))
	}

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      otelhttp.NewHandler(router, "catalog-api"),
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: time.Minute,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}
}

func healthHandler(db database.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := db.Health(r.Context())
		if health["status"] != "up" {
			custommiddleware.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "unavailable",
				"error":    "Database unavailable",
				"code":     custommiddleware.CodeUnavailable,
				"database": health,
			})
			return
		}
		custommiddleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"database": health,
		})
	}
}

// staticFiles serves dir without directory listings or dotfiles
func staticFiles(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, ".") || strings.Contains(path, "/.") {
			http.NotFound(w, r)
			return
		}
		if path == "" || strings.HasSuffix(path, "/") {
			index := filepath.Join(dir, filepath.FromSlash(path), "index.html")
			if _, err := os.Stat(index); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

// Close releases the database pool and the Redis client
func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	return nil
}
