package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPricingCalculate(t *testing.T) {
	pricing := Pricing{TaxRate: decimal.RequireFromString("0.10"), ShippingCost: 599, Currency: "USD"}

	tests := []struct {
		name     string
		subtotal int64
		want     Totals
	}{
		{name: "ten percent tax plus flat shipping", subtotal: 2500, want: Totals{Subtotal: 2500, Tax: 250, ShippingCost: 599, Total: 3349}},
		{name: "half cent rounds up", subtotal: 1005, want: Totals{Subtotal: 1005, Tax: 101, ShippingCost: 599, Total: 1705}},
		{name: "below half cent rounds down", subtotal: 1004, want: Totals{Subtotal: 1004, Tax: 100, ShippingCost: 599, Total: 1703}},
		{name: "zero subtotal still ships", subtotal: 0, want: Totals{ShippingCost: 599, Total: 599}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Calculate(tt.subtotal, "WELCOME10")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Subtotal+got.Tax+got.ShippingCost-got.Discount, got.Total)
		})
	}
}
