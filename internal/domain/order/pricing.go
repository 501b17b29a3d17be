// internal/domain/order/pricing.go
package order

import (
	"github.com/quickcommerce/storefront/internal/config"
	"github.com/shopspring/decimal"
)

// Pricing computes order totals. Tax is a flat rate and shipping a flat fee.
type Pricing struct {
	TaxRate      decimal.Decimal
	ShippingCost int64
	Currency     string
}

// Totals is the money breakdown of an order, in cents
type Totals struct {
	Subtotal     int64
	Tax          int64
	ShippingCost int64
	Discount     int64
	Total        int64
}

// NewPricing reads pricing from the checkout configuration
func NewPricing(cfg *config.Config) Pricing {
	return Pricing{
		TaxRate:      cfg.Checkout.TaxRate,
		ShippingCost: cfg.Checkout.ShippingCost,
		Currency:     cfg.Checkout.Currency,
	}
}

// Calculate returns the totals for a cart subtotal. Tax rounds half away
// from zero to the cent.
func (p Pricing) Calculate(subtotal int64, promoCode string) Totals {
	tax := decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
	gross := subtotal + tax + p.ShippingCost

	discount := p.discount(promoCode, subtotal)
	if discount > gross {
		discount = gross
	}

	return Totals{
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: p.ShippingCost,
		Discount:     discount,
		Total:        gross - discount,
	}
}

// discount is zero for now; promo codes are stored on the order but not
// yet redeemed.
func (p Pricing) discount(promoCode string, subtotal int64) int64 {
	return 0
}
