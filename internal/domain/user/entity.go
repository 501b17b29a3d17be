// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Address is an immutable copy of an address taken when an order is placed.
// Orders reference it by id, so later edits to the customer's address book
// never change what an order was shipped to.
type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	FirstName    string    `gorm:"size:100;not null" json:"firstName"`
	LastName     string    `gorm:"size:100;not null" json:"lastName"`
	Company      string    `gorm:"size:100" json:"company,omitempty"`
	AddressLine1 string    `gorm:"size:255;not null" json:"addressLine1"`
	AddressLine2 string    `gorm:"size:255" json:"addressLine2,omitempty"`
	City         string    `gorm:"size:100;not null" json:"city"`
	State        string    `gorm:"size:100" json:"state"`
	PostalCode   string    `gorm:"size:20;not null" json:"postalCode"`
	Country      string    `gorm:"size:2;not null" json:"country"` // ISO 2-letter code
	Phone        string    `gorm:"size:20" json:"phone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PaymentMethod is the reference to a customer's stored payment instrument
// as it was at checkout. Only the provider's opaque id is kept.
type PaymentMethod struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"userId"`
	Type              string    `gorm:"size:30;not null" json:"type"`
	ProviderReference string    `gorm:"size:255;not null" json:"providerReference"`
	CreatedAt         time.Time `json:"createdAt"`
}

const PaymentTypeCreditCard = "CREDIT_CARD"

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "order_addresses"
}

// TableName overrides the table name for PaymentMethod
func (PaymentMethod) TableName() string {
	return "order_payment_methods"
}

// BeforeCreate normalizes the country code
func (a *Address) BeforeCreate(tx *gorm.DB) error {
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	return nil
}

// GetFullName returns the recipient's full name
func (a *Address) GetFullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Lines returns the printable address lines, skipping empty ones
func (a *Address) Lines() []string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State, a.PostalCode), ", "))
	return nonEmpty(a.GetFullName(), a.Company, a.AddressLine1, a.AddressLine2, cityLine, a.Country)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
