// internal/domain/user/payment_service.go
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/quickcommerce/storefront/internal/pkg/apperror"
	"gorm.io/gorm"
)

// PaymentMethodRegistry turns the payment method id a client submits into a
// stored reference that an order can point at.
type PaymentMethodRegistry interface {
	Resolve(ctx context.Context, tx *gorm.DB, userID uint, paymentMethodID string) (*PaymentMethod, error)
}

// PaymentMethodService records card references for orders. Capture happens
// with the payment provider, outside this service.
type PaymentMethodService struct{}

// NewPaymentMethodService creates a new payment method service
func NewPaymentMethodService() *PaymentMethodService {
	return &PaymentMethodService{}
}

// Resolve persists a reference to the provider payment method
func (s *PaymentMethodService) Resolve(ctx context.Context, tx *gorm.DB, userID uint, paymentMethodID string) (*PaymentMethod, error) {
	ref := strings.TrimSpace(paymentMethodID)
	if ref == "" {
		return nil, apperror.InvalidArgument("payment method id is required")
	}
	if len(ref) > 255 {
		return nil, apperror.InvalidArgument("payment method id is too long")
	}

	method := PaymentMethod{
		UserID:            userID,
		Type:              PaymentTypeCreditCard,
		ProviderReference: ref,
	}
	if err := tx.WithContext(ctx).Create(&method).Error; err != nil {
		return nil, fmt.Errorf("failed to save payment method: %w", err)
	}

	return &method, nil
}
