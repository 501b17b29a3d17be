// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/domain/cart"
	"github.com/quickcommerce/storefront/internal/domain/order"
	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/domain/user"
	redisstore "github.com/quickcommerce/storefront/internal/infrastructure/database/redis"
	"github.com/quickcommerce/storefront/internal/interfaces/http/handlers"
	"github.com/quickcommerce/storefront/internal/interfaces/http/middleware"
	"github.com/quickcommerce/storefront/internal/interfaces/http/routes"
	"github.com/quickcommerce/storefront/internal/pkg/auth"
	"github.com/quickcommerce/storefront/internal/pkg/metrics"
	"github.com/quickcommerce/storefront/internal/pkg/pdf"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dependencies are the infrastructure handles the server is built from.
// Redis, Events, Catalog and Invoices are optional.
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics
	Events   order.EventPublisher
	Catalog  product.Catalog
	Invoices handlers.InvoiceGenerator
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	deps       Dependencies
	gin        *gin.Engine
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer wires services, handlers and middleware into a gin engine
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Catalog == nil {
		deps.Catalog = product.NewCatalog(deps.DB)
	}
	if deps.Invoices == nil {
		deps.Invoices = pdf.NewService(cfg)
	}

	s := &Server{
		config:    cfg,
		deps:      deps,
		gin:       gin.New(),
		startedAt: time.Now(),
	}

	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			deps.Logger.WithError(err).Warn("invalid trusted proxies, ignoring")
		}
	} else {
		_ = s.gin.SetTrustedProxies(nil)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.deps.Logger.WithField("port", s.config.Server.Port).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.deps.Logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.deps.Logger.Info("HTTP server stopped gracefully")
	return nil
}

// setupMiddleware configures all middleware for the server
func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.deps.Logger))
	s.gin.Use(middleware.Metrics(s.deps.Metrics))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())

	if s.deps.Redis != nil {
		s.gin.Use(middleware.RateLimit(s.config.Security.RateLimitPerMinute, s.deps.Redis, s.deps.Logger))
	}

	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

// setupRoutes builds the domain services and mounts their routes
func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	s.gin.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))

	cartService := cart.NewService(s.deps.DB, s.deps.Catalog, s.deps.Logger)

	orderDeps := order.Dependencies{
		Carts:          cartService,
		Catalog:        s.deps.Catalog,
		Addresses:      user.NewAddressService(),
		PaymentMethods: user.NewPaymentMethodService(),
		Events:         s.deps.Events,
		Metrics:        s.deps.Metrics,
		Logger:         s.deps.Logger,
	}
	if s.deps.Redis != nil {
		orderDeps.Idempotency = redisstore.NewIdempotencyStore(s.deps.Redis, s.config.Checkout.IdempotencyTTL)
	}
	orderService := order.NewService(s.deps.DB, s.config, orderDeps)

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.config, auth.NewJWTManager(s.config), routes.Handlers{
		Cart:    handlers.NewCartHandler(cartService, s.deps.Logger),
		Order:   handlers.NewOrderHandler(orderService, s.deps.Logger),
		Invoice: handlers.NewInvoiceHandler(orderService, s.deps.Invoices, s.deps.Logger),
	})
}

// healthCheck reports whether the database and Redis answer
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	sqlDB, err := s.deps.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database ping failed",
		})
		return
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "redis ping failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck handles readiness check requests
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
