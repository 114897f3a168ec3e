package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"pharmaseek/internal/config"
	"pharmaseek/internal/docstore"
	custommiddleware "pharmaseek/internal/middleware"
	"pharmaseek/internal/repository"
	"pharmaseek/internal/service"
	"pharmaseek/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

// NewServer wires the document store into repositories, services and
// handlers, and assembles the HTTP middleware stack. db and redisClient may
// be nil when the selected backend or deployment does not need them.
func NewServer(cfg *config.Config, logger *zap.Logger, store docstore.Store, db *sql.DB, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(store)
	branchRepo := repository.NewBranchRepository(store)
	availabilityRepo := repository.NewAvailabilityRepository(store)
	alternativeRepo := repository.NewAlternativeRepository(store)

	// Initialize services
	productService := service.NewProductService(productRepo, availabilityRepo, alternativeRepo)
	branchService := service.NewBranchService(branchRepo, availabilityRepo)
	importService := service.NewImportService(productService)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, importService, logger)
	branchHandler := transport.NewBranchHandler(branchService, logger)

	// Catalog routes require a pharmacy scope and are rate limited per scope
	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.PharmacyScopeMiddleware(logger))
		if redisClient != nil {
			r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
				Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
				KeyPrefix:         "rate_limit",
			}, logger))
		}
		productHandler.RegisterRoutes(r)
		branchHandler.RegisterRoutes(r)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
