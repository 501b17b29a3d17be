// internal/domain/cart/store.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/quickcommerce/storefront/internal/pkg/dbretry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists carts and their items
type Store struct {
	db *gorm.DB
}

// NewStore creates a new cart store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Transaction runs fn with a store bound to a new transaction, or to a
// savepoint when the store already is.
func (s *Store) Transaction(ctx context.Context, fn func(store *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.WithTx(tx))
	})
}

func ownerScope(owner Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id, ok := owner.UserID(); ok {
			return db.Where("user_id = ?", id)
		}
		if token, ok := owner.SessionToken(); ok {
			return db.Where("session_token = ?", token)
		}
		return db.Where("1 = 0")
	}
}

// FindByOwner returns the owner's cart without items
func (s *Store) FindByOwner(ctx context.Context, owner Owner) (*Cart, error) {
	var cart Cart
	err := dbretry.ReadOn(ctx, s.db, func() error {
		return s.db.WithContext(ctx).Scopes(ownerScope(owner)).First(&cart).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart for %s not found", owner)
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return &cart, nil
}

// Resolve returns the owner's cart, creating it when absent. Concurrent
// callers for the same owner end up with the same row: the insert yields to
// the unique owner index and the row is read back. NoOwner resolves to a
// transient cart that is not stored.
func (s *Store) Resolve(ctx context.Context, owner Owner) (*Cart, bool, error) {
	if owner.Kind() == OwnerNone {
		return &Cart{}, false, nil
	}

	cart, err := s.FindByOwner(ctx, owner)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, false, err
	}

	fresh := newCartFor(owner)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to create cart: %w", result.Error)
	}

	cart, err = s.FindByOwner(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	return cart, result.RowsAffected == 1, nil
}

// Lock takes a row lock on the cart for the rest of the transaction.
// sqlite has no row locks; it serializes writers on the whole database.
func (s *Store) Lock(ctx context.Context, cartID uint) error {
	query := s.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cart Cart
	if err := query.Select("id").Where("id = ?", cartID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("cart %d not found", cartID)
		}
		return fmt.Errorf("failed to lock cart: %w", err)
	}
	return nil
}

// Load returns the cart with its items ordered by id
func (s *Store) Load(ctx context.Context, cartID uint) (*Cart, error) {
	var cart Cart
	err := dbretry.ReadOn(ctx, s.db, func() error {
		return s.db.WithContext(ctx).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			First(&cart, cartID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart %d not found", cartID)
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &cart, nil
}

// CountItems sums the quantities in the owner's cart
func (s *Store) CountItems(ctx context.Context, owner Owner) (int, error) {
	var total int64
	err := dbretry.ReadOn(ctx, s.db, func() error {
		return s.db.WithContext(ctx).Model(&CartItem{}).
			Joins("JOIN carts ON carts.id = cart_items.cart_id").
			Scopes(ownerScope(owner)).
			Select("COALESCE(SUM(cart_items.quantity), 0)").
			Scan(&total).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return int(total), nil
}

// FindItem returns the item if it belongs to the cart
func (s *Store) FindItem(ctx context.Context, cartID, itemID uint) (*CartItem, error) {
	var item CartItem
	err := s.db.WithContext(ctx).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart item %d not found", itemID)
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return &item, nil
}

// FindItemByProduct returns the cart's line for a product
func (s *Store) FindItemByProduct(ctx context.Context, cartID, productID uint) (*CartItem, error) {
	var item CartItem
	err := s.db.WithContext(ctx).Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product %d not in cart", productID)
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}
	return &item, nil
}

// InsertItem adds a new line to a cart
func (s *Store) InsertItem(ctx context.Context, item *CartItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

// IncrementItem adds delta to the item quantity in SQL
func (s *Store) IncrementItem(ctx context.Context, itemID uint, delta int) error {
	err := s.db.WithContext(ctx).Model(&CartItem{}).Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to increment cart item: %w", err)
	}
	return nil
}

// SetItemQuantity overwrites the item quantity
func (s *Store) SetItemQuantity(ctx context.Context, itemID uint, quantity int) error {
	err := s.db.WithContext(ctx).Model(&CartItem{}).Where("id = ?", itemID).
		Updates(map[string]any{
			"quantity":   quantity,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// MoveItem re-parents an item onto another cart, keeping its price
func (s *Store) MoveItem(ctx context.Context, itemID, toCartID uint) error {
	err := s.db.WithContext(ctx).Model(&CartItem{}).Where("id = ?", itemID).
		Updates(map[string]any{
			"cart_id":    toCartID,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to move cart item: %w", err)
	}
	return nil
}

// DeleteItem removes a single line
func (s *Store) DeleteItem(ctx context.Context, itemID uint) error {
	if err := s.db.WithContext(ctx).Delete(&CartItem{}, itemID).Error; err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// DeleteItems empties a cart
func (s *Store) DeleteItems(ctx context.Context, cartID uint) error {
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// DeleteCart removes the cart and whatever items are left in it
func (s *Store) DeleteCart(ctx context.Context, cartID uint) error {
	if err := s.DeleteItems(ctx, cartID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&Cart{}, cartID).Error; err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Touch bumps the cart's updated_at
func (s *Store) Touch(ctx context.Context, cartID uint) error {
	err := s.db.WithContext(ctx).Model(&Cart{}).Where("id = ?", cartID).
		Update("updated_at", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}
