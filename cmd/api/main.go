// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/infrastructure/database/postgres"
	"github.com/quickcommerce/storefront/internal/infrastructure/database/redis"
	"github.com/quickcommerce/storefront/internal/interfaces/http"
	"github.com/quickcommerce/storefront/internal/pkg/events"
	"github.com/quickcommerce/storefront/internal/pkg/logger"
	"github.com/quickcommerce/storefront/internal/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)
	appLogger.WithField("environment", cfg.App.Environment).Infof("starting %s v%s", cfg.App.Name, cfg.App.Version)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		migration := postgres.NewMigration(db.GetDB(), appLogger)

		if err := migration.RunAutoMigrations(); err != nil {
			appLogger.WithError(err).Fatal("database migration failed")
		}

		if err := migration.CreateIndexes(); err != nil {
			appLogger.WithError(err).Warn("index creation failed")
		}

		// Seed initial data in development
		if cfg.IsDevelopment() {
			if err := migration.SeedInitialData(); err != nil {
				appLogger.WithError(err).Warn("data seeding failed")
			}
			if err := migration.GetTableInfo(); err != nil {
				appLogger.WithError(err).Warn("failed to read table info")
			}
		}
	}

	publisher := events.NewPublisher(cfg)
	defer publisher.Close()
	if !publisher.Enabled() {
		appLogger.Warn("KAFKA_BROKERS not set, order events are not published")
	}

	server := http.NewServer(cfg, http.Dependencies{
		DB:      db.GetDB(),
		Redis:   redisClient.GetClient(),
		Logger:  appLogger,
		Metrics: metrics.New(),
		Events:  publisher,
	})

	go func() {
		if err := server.Start(); err != nil {
			appLogger.WithError(err).Fatal("failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down gracefully")

	// Give in-flight requests 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		appLogger.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}

	appLogger.Info("server shutdown completed")
}
