// internal/domain/user/address_service.go
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

// AddressBook stores address snapshots for orders. The caller passes the
// transaction the snapshot must be written in.
type AddressBook interface {
	Snapshot(ctx context.Context, tx *gorm.DB, userID uint, in AddressInput) (*Address, error)
}

// AddressInput is the address a customer submits at checkout
type AddressInput struct {
	FirstName    string `json:"firstName" binding:"required"`
	LastName     string `json:"lastName" binding:"required"`
	Company      string `json:"company"`
	AddressLine1 string `json:"addressLine1" binding:"required"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode" binding:"required"`
	Country      string `json:"country" binding:"required,len=2"`
	Phone        string `json:"phone"`
}

// AddressService handles address snapshots
type AddressService struct{}

// NewAddressService creates a new address service
func NewAddressService() *AddressService {
	return &AddressService{}
}

// Snapshot validates the input and persists an immutable copy of it
func (s *AddressService) Snapshot(ctx context.Context, tx *gorm.DB, userID uint, in AddressInput) (*Address, error) {
	if err := ValidateAddress(&in); err != nil {
		return nil, err
	}

	address := Address{
		UserID:       userID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Company:      strings.TrimSpace(in.Company),
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: strings.TrimSpace(in.AddressLine2),
		City:         strings.TrimSpace(in.City),
		State:        strings.TrimSpace(in.State),
		PostalCode:   strings.TrimSpace(in.PostalCode),
		Country:      strings.ToUpper(strings.TrimSpace(in.Country)),
		Phone:        strings.TrimSpace(in.Phone),
	}

	if err := tx.WithContext(ctx).Create(&address).Error; err != nil {
		return nil, fmt.Errorf("failed to save address snapshot: %w", err)
	}

	return &address, nil
}

// ValidateAddress validates address completeness for orders
func ValidateAddress(in *AddressInput) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return apperror.InvalidArgument("first name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return apperror.InvalidArgument("last name is required")
	}
	if strings.TrimSpace(in.AddressLine1) == "" {
		return apperror.InvalidArgument("address line 1 is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return apperror.InvalidArgument("city is required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return apperror.InvalidArgument("postal code is required")
	}

	return validateCountryCode(in.Country)
}

// validateCountryCode checks the shape of an ISO 3166-1 alpha-2 code
func validateCountryCode(countryCode string) error {
	code := strings.TrimSpace(countryCode)
	if len(code) != 2 {
		return apperror.InvalidArgument("invalid country code: %s", countryCode)
	}
	for _, r := range strings.ToUpper(code) {
		if r < 'A' || r > 'Z' {
			return apperror.InvalidArgument("invalid country code: %s", countryCode)
		}
	}
	return nil
}
