// internal/domain/order/store.go
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/quickcommerce/storefront/internal/pkg/dbretry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists orders
type Store struct {
	db *gorm.DB
}

// NewStore creates a new order store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// ListFilter selects and pages orders
type ListFilter struct {
	UserID    uint
	Status    OrderStatus
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Preload("PaymentMethod")
}

// Create inserts the order with its items and first history entry. The
// address and payment snapshots must already exist.
func (s *Store) Create(ctx context.Context, order *Order) error {
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber()
	}
	err := s.db.WithContext(ctx).
		Omit("ShippingAddress", "BillingAddress", "PaymentMethod").
		Create(order).Error
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Get returns an order with items and snapshots
func (s *Store) Get(ctx context.Context, orderID uint) (*Order, error) {
	return s.first(ctx, "id = ?", orderID)
}

// GetByNumber returns an order by its order number
func (s *Store) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.first(ctx, "order_number = ?", orderNumber)
}

func (s *Store) first(ctx context.Context, query string, arg any) (*Order, error) {
	var order Order
	err := dbretry.ReadOn(ctx, s.db, func() error {
		return s.db.WithContext(ctx).Scopes(withDetails).
			Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Where(query, arg).First(&order).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order %v not found", arg)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", err)
	}
	return &order, nil
}

// Lock reads the order row for update. Must run inside a transaction.
func (s *Store) Lock(ctx context.Context, orderID uint) (*Order, error) {
	query := s.db.WithContext(ctx)
	if query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order Order
	if err := query.Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return &order, nil
}

// SaveLifecycle writes the status, lifecycle timestamps and delivery partner,
// and appends a history entry when the status changed.
func (s *Store) SaveLifecycle(ctx context.Context, order *Order, previous OrderStatus, comment string) error {
	err := s.db.WithContext(ctx).Model(order).
		Select("status", "processed_at", "shipped_at", "delivered_at", "cancelled_at", "delivery_partner_id", "updated_at").
		Updates(order).Error
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	if previous == order.Status {
		return nil
	}
	history := OrderStatusHistory{
		OrderID: order.ID,
		From:    previous,
		Status:  order.Status,
		Comment: comment,
	}
	if err := s.db.WithContext(ctx).Create(&history).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}
	return nil
}

// List returns one page of orders and the total match count
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := s.db.WithContext(ctx).Model(&Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	err := dbretry.ReadOn(ctx, s.db, func() error {
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return err
		}
		offset := (filter.Page - 1) * filter.Limit
		return query.Session(&gorm.Session{}).Scopes(withDetails).
			Order(buildOrderClause(filter.SortBy, filter.SortOrder)).
			Order("id DESC").
			Offset(offset).Limit(filter.Limit).
			Find(&orders).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return orders, total, nil
}

func buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]string{
		"orderDate":   "created_at",
		"created_at":  "created_at",
		"lastUpdated": "updated_at",
		"updated_at":  "updated_at",
		"total":       "total",
		"status":      "status",
		"orderNumber": "order_number",
	}

	column, ok := validSortFields[sortBy]
	if !ok {
		column = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", column, sortOrder)
}
