// internal/domain/product/catalog.go
package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/quickcommerce/storefront/internal/pkg/dbretry"
	"gorm.io/gorm"
)

// Catalog looks up the current state of a product. Inactive and deleted
// products are reported as not found.
type Catalog interface {
	Get(ctx context.Context, productID uint) (*Product, error)
	// WithTx returns a catalog that reads through tx. Lookups made while a
	// transaction is open must use it so they do not wait on a second
	// pooled connection.
	WithTx(tx *gorm.DB) Catalog
}

// DBCatalog reads products straight from the products table
type DBCatalog struct {
	db *gorm.DB
}

// NewCatalog creates a catalog backed by the database
func NewCatalog(db *gorm.DB) *DBCatalog {
	return &DBCatalog{db: db}
}

// WithTx returns a catalog bound to the given transaction
func (c *DBCatalog) WithTx(tx *gorm.DB) Catalog {
	return &DBCatalog{db: tx}
}

// Get returns an active product with its images
func (c *DBCatalog) Get(ctx context.Context, productID uint) (*Product, error) {
	var product Product
	err := dbretry.ReadOn(ctx, c.db, func() error {
		return c.db.WithContext(ctx).
			Preload("Images").
			Where("id = ? AND is_active = ?", productID, true).
			First(&product).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product %d not found", productID)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}
