// internal/domain/order/service.go
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quickcommerce/storefront/internal/config"
	"github.com/quickcommerce/storefront/internal/domain/cart"
	"github.com/quickcommerce/storefront/internal/domain/product"
	"github.com/quickcommerce/storefront/internal/domain/user"
	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// IdempotencyStore remembers which order a checkout idempotency key produced
type IdempotencyStore interface {
	// Reserve claims key. If the key already completed, the stored order id
	// is returned with reserved false.
	Reserve(ctx context.Context, key string) (orderID uint, reserved bool, err error)
	Complete(ctx context.Context, key string, orderID uint) error
	Release(ctx context.Context, key string) error
}

// Recorder receives order counters
type Recorder interface {
	OrderCreated(total int64)
	OrderTransitioned(from, to string)
}

// Dependencies are the collaborators of the order service
type Dependencies struct {
	Carts          *cart.Service
	Catalog        product.Catalog
	Addresses      user.AddressBook
	PaymentMethods user.PaymentMethodRegistry
	Events         EventPublisher
	Idempotency    IdempotencyStore
	Metrics        Recorder
	Logger         *logrus.Logger
}

// Service handles order business logic
type Service struct {
	db      *gorm.DB
	store   *Store
	pricing Pricing
	deps    Dependencies
	now     func() time.Time
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config, deps Dependencies) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		pricing: NewPricing(cfg),
		deps:    deps,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	ShippingAddress              *user.AddressInput `json:"shippingAddress" binding:"required"`
	BillingAddress               *user.AddressInput `json:"billingAddress,omitempty"`
	UseShippingAddressForBilling *bool              `json:"useShippingAddressForBilling"`
	PaymentMethodID              string             `json:"paymentMethodId" binding:"required"`
	Notes                        string             `json:"notes,omitempty" binding:"max=2000"`
	DeliveryInstructions         string             `json:"deliveryInstructions,omitempty" binding:"max=2000"`
	PromoCode                    string             `json:"promoCode,omitempty" binding:"max=50"`

	// IdempotencyKey comes from the Idempotency-Key header
	IdempotencyKey string `json:"-"`
}

// billingSameAsShipping defaults to true when the flag is omitted
func (r *CreateOrderRequest) billingSameAsShipping() bool {
	if r.BillingAddress == nil {
		return true
	}
	return r.UseShippingAddressForBilling == nil || *r.UseShippingAddressForBilling
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Status    string `form:"status"`
	SortBy    string `form:"sortBy,default=orderDate"`
	SortOrder string `form:"sortOrder,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// TrackingInfo is the customer view of where an order is
type TrackingInfo struct {
	OrderID           uint                 `json:"orderId"`
	OrderNumber       string               `json:"orderNumber"`
	Status            OrderStatus          `json:"status"`
	OrderDate         time.Time            `json:"orderDate"`
	ProcessedAt       *time.Time           `json:"processedAt,omitempty"`
	ShippedAt         *time.Time           `json:"shippedAt,omitempty"`
	DeliveredAt       *time.Time           `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time           `json:"cancelledAt,omitempty"`
	DeliveryPartnerID *uint                `json:"deliveryPartnerId,omitempty"`
	History           []OrderStatusHistory `json:"history"`
}

// CreateOrder checks out the user's cart. The order, its snapshots and the
// emptied cart commit together or not at all.
func (s *Service) CreateOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	if userID == 0 {
		return nil, apperror.InvalidArgument("user id required")
	}
	if req.ShippingAddress == nil {
		return nil, apperror.InvalidArgument("shipping address is required")
	}

	if key := req.IdempotencyKey; key != "" && s.deps.Idempotency != nil {
		scoped := fmt.Sprintf("%d:%s", userID, key)
		existingID, reserved, err := s.deps.Idempotency.Reserve(ctx, scoped)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if !reserved {
			if existingID == 0 {
				return nil, apperror.Conflict("a checkout with this idempotency key is already in progress")
			}
			return s.GetOrderByID(ctx, userID, existingID)
		}

		order, err := s.createOrder(ctx, userID, req)
		if err != nil {
			if relErr := s.deps.Idempotency.Release(ctx, scoped); relErr != nil {
				s.deps.Logger.WithError(relErr).Warn("failed to release idempotency key")
			}
			return nil, err
		}
		if err := s.deps.Idempotency.Complete(ctx, scoped, order.ID); err != nil {
			s.deps.Logger.WithError(err).WithField("order_id", order.ID).Warn("failed to store idempotency result")
		}
		return order, nil
	}

	return s.createOrder(ctx, userID, req)
}

func (s *Service) createOrder(ctx context.Context, userID uint, req *CreateOrderRequest) (*Order, error) {
	owner := cart.UserOwner(userID)
	var created *Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.deps.Carts.WithTx(tx)
		catalog := s.deps.Catalog.WithTx(tx)

		snapshot, err := carts.Snapshot(ctx, owner)
		if err != nil {
			return err
		}
		if len(snapshot.Items) == 0 {
			return apperror.InvalidState("cannot create an order from an empty cart")
		}

		shipping, err := s.deps.Addresses.Snapshot(ctx, tx, userID, *req.ShippingAddress)
		if err != nil {
			return err
		}
		billing := shipping
		if !req.billingSameAsShipping() {
			billing, err = s.deps.Addresses.Snapshot(ctx, tx, userID, *req.BillingAddress)
			if err != nil {
				return err
			}
		}

		payment, err := s.deps.PaymentMethods.Resolve(ctx, tx, userID, req.PaymentMethodID)
		if err != nil {
			return err
		}

		items := make([]OrderItem, 0, len(snapshot.Items))
		for _, line := range snapshot.Items {
			prod, err := catalog.Get(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("product %d in cart is no longer available: %w", line.ProductID, err)
			}
			items = append(items, OrderItem{
				ProductID:    line.ProductID,
				ProductName:  prod.Name,
				ProductImage: prod.ImageURL(),
				Quantity:     line.Quantity,
				Price:        line.Price,
			})
		}

		totals := s.pricing.Calculate(snapshot.Total(), req.PromoCode)
		order := &Order{
			OrderNumber:          NewOrderNumber(),
			UserID:               userID,
			Status:               OrderStatusPending,
			Subtotal:             totals.Subtotal,
			Tax:                  totals.Tax,
			ShippingCost:         totals.ShippingCost,
			Discount:             totals.Discount,
			Total:                totals.Total,
			Currency:             s.pricing.Currency,
			PromoCode:            strings.TrimSpace(req.PromoCode),
			ShippingAddressID:    shipping.ID,
			BillingAddressID:     billing.ID,
			PaymentMethodID:      payment.ID,
			Notes:                req.Notes,
			DeliveryInstructions: req.DeliveryInstructions,
			ShippingAddress:      shipping,
			BillingAddress:       billing,
			PaymentMethod:        payment,
			Items:                items,
			StatusHistory: []OrderStatusHistory{
				{Status: OrderStatusPending, Comment: "order placed"},
			},
		}

		if err := s.store.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if err := carts.ClearCart(ctx, owner); err != nil {
			return fmt.Errorf("failed to clear cart after checkout: %w", err)
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"user_id":      userID,
		"total":        created.Total,
		"items":        len(created.Items),
	}).Info("order created")
	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderCreated(created.Total)
	}
	s.publish(ctx, EventOrderCreated, created, "")

	reloaded, err := s.store.Get(ctx, created.ID)
	if err != nil {
		s.deps.Logger.WithError(err).WithField("order_id", created.ID).Warn("failed to reload created order")
		return created, nil
	}
	return reloaded, nil
}

// GetOrderByID returns one of the user's orders
func (s *Service) GetOrderByID(ctx context.Context, userID, orderID uint) (*Order, error) {
	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(userID) {
		return nil, apperror.Unauthorized("you do not have access to order %d", orderID)
	}
	return order, nil
}

// GetOrderByNumber returns one of the user's orders by order number
func (s *Service) GetOrderByNumber(ctx context.Context, userID uint, orderNumber string) (*Order, error) {
	order, err := s.store.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
	if err != nil {
		return nil, err
	}
	if !order.IsOwnedBy(userID) {
		return nil, apperror.Unauthorized("you do not have access to order %s", orderNumber)
	}
	return order, nil
}

// GetUserOrders pages through the user's orders, newest first by default
func (s *Service) GetUserOrders(ctx context.Context, userID uint, req *OrderListRequest) (*OrderResponse, error) {
	return s.list(ctx, userID, req)
}

// GetOrders pages through all orders, for administrators
func (s *Service) GetOrders(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	return s.list(ctx, 0, req)
}

func (s *Service) list(ctx context.Context, userID uint, req *OrderListRequest) (*OrderResponse, error) {
	page, limit := normalizePage(req.Page, req.Limit)

	var status OrderStatus
	if req.Status != "" {
		parsed, err := ParseOrderStatus(req.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	orders, total, err := s.store.List(ctx, ListFilter{
		UserID:    userID,
		Status:    status,
		Page:      page,
		Limit:     limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &OrderResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// CancelOrder cancels one of the user's orders while it is still PENDING or
// PROCESSING
func (s *Service) CancelOrder(ctx context.Context, userID, orderID uint) (*Order, error) {
	return s.changeOrder(ctx, orderID, "cancelled by customer", func(o *Order) error {
		if !o.IsOwnedBy(userID) {
			return apperror.Unauthorized("you do not have access to order %d", orderID)
		}
		if !o.CanBeCancelled() {
			return apperror.InvalidState("order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
		}
		return o.TransitionTo(OrderStatusCancelled, s.now())
	})
}

// TrackOrder returns the lifecycle of one of the user's orders
func (s *Service) TrackOrder(ctx context.Context, userID, orderID uint) (*TrackingInfo, error) {
	order, err := s.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	return &TrackingInfo{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		OrderDate:         order.CreatedAt,
		ProcessedAt:       order.ProcessedAt,
		ShippedAt:         order.ShippedAt,
		DeliveredAt:       order.DeliveredAt,
		CancelledAt:       order.CancelledAt,
		DeliveryPartnerID: order.DeliveryPartnerID,
		History:           order.StatusHistory,
	}, nil
}

// Reorder replaces the user's cart with the items of a past order at
// today's catalog prices
func (s *Service) Reorder(ctx context.Context, userID, orderID uint) (*cart.CartResponse, error) {
	order, err := s.GetOrderByID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	owner := cart.UserOwner(userID)
	var refreshed *cart.CartResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		carts := s.deps.Carts.WithTx(tx)
		if err := carts.ClearCart(ctx, owner); err != nil {
			return err
		}
		for _, item := range order.Items {
			resp, err := carts.AddToCart(ctx, owner, &cart.AddToCartRequest{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
			if err != nil {
				return fmt.Errorf("failed to reorder product %d: %w", item.ProductID, err)
			}
			refreshed = resp
		}
		if refreshed == nil {
			var err error
			refreshed, err = carts.GetCart(ctx, owner)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"user_id":  userID,
		"items":    len(order.Items),
	}).Info("order items copied to cart")

	return refreshed, nil
}

// UpdateOrderStatus moves any order along the status graph, for administrators
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, status OrderStatus) (*Order, error) {
	return s.changeOrder(ctx, orderID, "status updated by admin", func(o *Order) error {
		return o.TransitionTo(status, s.now())
	})
}

// AssignDeliveryPartner records the delivery partner in any status. An
// order being processed is handed over and moves to IN_TRANSIT.
func (s *Service) AssignDeliveryPartner(ctx context.Context, orderID, partnerID uint) (*Order, error) {
	if partnerID == 0 {
		return nil, apperror.InvalidArgument("delivery partner id is required")
	}

	return s.changeOrder(ctx, orderID, fmt.Sprintf("assigned to delivery partner %d", partnerID), func(o *Order) error {
		o.DeliveryPartnerID = &partnerID
		if o.Status == OrderStatusProcessing {
			return o.TransitionTo(OrderStatusInTransit, s.now())
		}
		return nil
	})
}

// changeOrder locks the order, applies mutate and saves the result in one
// transaction
func (s *Service) changeOrder(ctx context.Context, orderID uint, comment string, mutate func(*Order) error) (*Order, error) {
	var previous OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTx(tx)
		order, err := store.Lock(ctx, orderID)
		if err != nil {
			return err
		}
		previous = order.Status
		if err := mutate(order); err != nil {
			return err
		}
		return store.SaveLifecycle(ctx, order, previous, comment)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if updated.Status != previous {
		s.deps.Logger.WithFields(logrus.Fields{
			"order_id":     updated.ID,
			"order_number": updated.OrderNumber,
			"from":         previous,
			"to":           updated.Status,
		}).Info("order status changed")
		if s.deps.Metrics != nil {
			s.deps.Metrics.OrderTransitioned(string(previous), string(updated.Status))
		}
		s.publish(ctx, EventOrderStatusChanged, updated, previous)
	}

	return updated, nil
}

// publish is best effort; the order is already committed
func (s *Service) publish(ctx context.Context, eventType string, o *Order, previous OrderStatus) {
	if s.deps.Events == nil {
		return
	}
	event := newEvent(eventType, o, previous)
	if err := s.deps.Events.PublishJSON(ctx, o.OrderNumber, event); err != nil {
		s.deps.Logger.WithError(err).WithFields(logrus.Fields{
			"event":    eventType,
			"order_id": o.ID,
		}).Warn("failed to publish order event")
	}
}
