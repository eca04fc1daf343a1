// Package pricing holds the pure cart arithmetic: line totals, VAT and the
// free-shipping rule. All money math is fixed-point decimal.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/agromercado/cartstate/internal/domain"
)

// LineTotal is unit price times quantity.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// Tax is the subtotal times the configured rate.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate)
}

// Shipping is the flat base cost for a non-empty cart strictly below the
// free-shipping threshold, zero otherwise. A subtotal exactly at the
// threshold ships free.
func Shipping(subtotal, base, threshold decimal.Decimal) decimal.Decimal {
	if subtotal.IsPositive() && subtotal.LessThan(threshold) {
		return base
	}
	return decimal.Zero
}

// Totals is the derived summary of a line item collection under a config.
type Totals struct {
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// Summarize recomputes every derived field from the items and config.
func Summarize(items []domain.LineItem, cfg domain.CartConfig) Totals {
	var t Totals
	t.Subtotal = decimal.Zero

	for _, item := range items {
		t.ItemCount += item.Quantity
		t.Subtotal = t.Subtotal.Add(item.TotalPrice.Amount)
	}

	t.Tax = Tax(t.Subtotal, cfg.TaxRate)
	t.Shipping = Shipping(t.Subtotal, cfg.BaseShippingCost, cfg.FreeShippingThreshold)
	t.Total = t.Subtotal.Add(t.Tax).Add(t.Shipping)
	return t
}
