// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/quickcommerce/storefront/internal/domain/cart"
	"github.com/quickcommerce/storefront/internal/domain/order"
	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/domain/user"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every table in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog
		&product.Product{},
		&product.ProductImage{},

		// Carts
		&cart.Cart{},
		&cart.CartItem{},

		// Order snapshots
		&user.Address{},
		&user.PaymentMethod{},

		// Orders
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates the indexes the list and lookup queries rely on
// beyond those declared on the models.
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)",
		"CREATE INDEX IF NOT EXISTS idx_product_images_product_primary ON product_images(product_id, is_primary)",

		// Cart indexes
		"CREATE INDEX IF NOT EXISTS idx_carts_updated_at ON carts(updated_at)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_total ON orders(total)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
	}

	var errs []error
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("failed to create index")
			errs = append(errs, err)
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - len(errs),
		"failed":  len(errs),
	}).Info("database indexes ensured")
	return errors.Join(errs...)
}

// SeedInitialData inserts a small catalog for local development
func (m *Migration) SeedInitialData() error {
	var productCount int64
	if err := m.db.Model(&product.Product{}).Count(&productCount).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if productCount > 0 {
		m.logger.Debug("catalog already seeded")
		return nil
	}

	seed := []product.Product{
		{
			SKU:         "QC-LAPTOP-001",
			Name:        "Premium Gaming Laptop",
			Slug:        "premium-gaming-laptop",
			Description: "High-performance gaming laptop with dedicated graphics.",
			Price:       199999,
			IsActive:    true,
			Images: []product.ProductImage{
				{URL: "https://cdn.example.com/products/laptop.jpg", AltText: "Gaming laptop", IsPrimary: true},
			},
		},
		{
			SKU:         "QC-MOUSE-002",
			Name:        "Wireless Gaming Mouse",
			Slug:        "wireless-gaming-mouse",
			Description: "Ergonomic wireless mouse with a high-precision sensor.",
			Price:       7999,
			IsActive:    true,
		},
		{
			SKU:         "QC-AUDIO-003",
			Name:        "Bluetooth Noise-Cancelling Headphones",
			Slug:        "bluetooth-noise-cancelling-headphones",
			Description: "Wireless headphones with active noise cancellation.",
			Price:       15999,
			IsActive:    true,
		},
	}

	if err := m.db.Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	m.logger.WithField("count", len(seed)).Info("seeded development catalog")
	return nil
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() error {
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(model); err != nil {
			return fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		var count int64
		if err := m.db.Model(model).Count(&count).Error; err != nil {
			m.logger.WithError(err).WithField("table", stmt.Schema.Table).Warn("failed to count rows")
			continue
		}
		m.logger.WithFields(logrus.Fields{
			"table": stmt.Schema.Table,
			"rows":  count,
		}).Debug("table info")
	}
	return nil
}
