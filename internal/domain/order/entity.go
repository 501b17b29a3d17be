// internal/domain/order/entity.go
package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quickcommerce/storefront/internal/domain/user"
	"github.com/quickcommerce/storefront/internal/pkg/apperror"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusInTransit  OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {
		OrderStatusProcessing,
		OrderStatusCancelled,
	},
	OrderStatusProcessing: {
		OrderStatusInTransit,
		OrderStatusCancelled,
	},
	OrderStatusInTransit: {
		OrderStatusDelivered,
	},
}

// ParseOrderStatus accepts a status name in any case
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return status, nil
	}
	return "", apperror.InvalidArgument("unknown order status: %q", s)
}

// CanTransitionTo reports whether next is reachable in one step
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is the immutable snapshot of a checked-out cart plus its lifecycle
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:20" json:"orderNumber"`
	UserID      uint        `gorm:"not null;index" json:"userId"`
	Status      OrderStatus `gorm:"not null;size:20;index" json:"status"`

	// Financial Information, in cents
	Subtotal     int64  `gorm:"not null" json:"subtotal"`
	Tax          int64  `gorm:"not null;default:0" json:"tax"`
	ShippingCost int64  `gorm:"not null;default:0" json:"shippingCost"`
	Discount     int64  `gorm:"not null;default:0" json:"discount"`
	Total        int64  `gorm:"not null;check:chk_orders_total,total >= 0" json:"total"`
	Currency     string `gorm:"size:3;not null" json:"currency"`
	PromoCode    string `gorm:"size:50" json:"promoCode,omitempty"`
	IsPaid       bool   `gorm:"not null;default:false" json:"isPaid"`

	// Snapshots
	ShippingAddressID uint                `gorm:"not null" json:"-"`
	BillingAddressID  uint                `gorm:"not null" json:"-"`
	PaymentMethodID   uint                `gorm:"not null" json:"-"`
	ShippingAddress   *user.Address       `gorm:"foreignKey:ShippingAddressID" json:"shippingAddress,omitempty"`
	BillingAddress    *user.Address       `gorm:"foreignKey:BillingAddressID" json:"billingAddress,omitempty"`
	PaymentMethod     *user.PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"paymentMethod,omitempty"`

	// Additional Information
	Notes                string `gorm:"type:text" json:"notes,omitempty"`
	DeliveryInstructions string `gorm:"type:text" json:"deliveryInstructions,omitempty"`
	DeliveryPartnerID    *uint  `gorm:"index" json:"deliveryPartnerId,omitempty"`

	// Timestamps
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"orderDate"`
	UpdatedAt   time.Time  `json:"lastUpdated"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"statusHistory,omitempty"`
}

// OrderItem is a frozen order line; name and image are copied from the
// catalog at checkout.
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"orderId"`
	ProductID    uint      `gorm:"not null;index" json:"productId"`
	ProductName  string    `gorm:"not null;size:255" json:"productName"`
	ProductImage string    `gorm:"size:500" json:"productImage,omitempty"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Price        int64     `gorm:"not null" json:"price"` // Price per unit in cents
	CreatedAt    time.Time `json:"createdAt"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"orderId"`
	From      OrderStatus `gorm:"size:20" json:"from,omitempty"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// Business methods for Order

// NewOrderNumber generates a customer facing order number, QC-XXXXXXXX
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "QC-" + strings.ToUpper(id[:8])
}

// Subtotal returns quantity times unit price
func (i *OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanTransitionTo(OrderStatusCancelled)
}

// IsOwnedBy reports whether the order belongs to userID
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// TransitionTo moves the order to next along the status graph and stamps
// the lifecycle timestamp for next if it has not been set yet.
func (o *Order) TransitionTo(next OrderStatus, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return apperror.InvalidState("order %s cannot move from %s to %s", o.OrderNumber, o.Status, next)
	}

	setOnce := func(field **time.Time) {
		if *field == nil {
			t := at
			*field = &t
		}
	}

	switch next {
	case OrderStatusProcessing:
		setOnce(&o.ProcessedAt)
	case OrderStatusInTransit:
		setOnce(&o.ShippedAt)
	case OrderStatusDelivered:
		setOnce(&o.DeliveredAt)
	case OrderStatusCancelled:
		setOnce(&o.CancelledAt)
	}

	o.Status = next
	return nil
}
