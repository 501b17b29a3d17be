// internal/domain/cart/entity.go
package cart

import (
	"time"
)

// Cart belongs to exactly one user or one guest session once persisted
type Cart struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       *uint      `gorm:"uniqueIndex;check:chk_carts_single_owner,user_id IS NULL OR session_token IS NULL" json:"userId,omitempty"`
	SessionToken *string    `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem is one product line of a cart
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product" json:"cartId"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_cart_product;index" json:"productId"`
	Quantity  int       `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	Price     int64     `gorm:"not null" json:"price"` // Price at time of first add, in cents
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name
func (Cart) TableName() string {
	return "carts"
}

// TableName overrides the table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal is price times quantity
func (i *CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Persisted reports whether the cart has a database row
func (c *Cart) Persisted() bool {
	return c.ID != 0
}

// Total is the sum of all item subtotals
func (c *Cart) Total() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	return total
}

// ItemCount is the sum of all quantities
func (c *Cart) ItemCount() int {
	count := 0
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

func newCartFor(owner Owner) *Cart {
	c := &Cart{}
	if id, ok := owner.UserID(); ok {
		c.UserID = &id
	}
	if token, ok := owner.SessionToken(); ok {
		c.SessionToken = &token
	}
	return c
}
