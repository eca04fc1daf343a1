package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one row in the cart: a distinct product and its quantity.
// TotalPrice is always Quantity x UnitPrice, recomputed on every mutation.
type LineItem struct {
	ID         string      `json:"id"`
	Product    ProductInfo `json:"product"`
	Quantity   int         `json:"quantity"`
	UnitPrice  Money       `json:"unitPrice"`
	TotalPrice Money       `json:"totalPrice"`
	Currency   Currency    `json:"currency"`

	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (li LineItem) Clone() LineItem {
	out := li
	out.Product = li.Product.clone()
	return out
}

// CartState is the full cart: line items in insertion order plus totals
// derived from them. Derived fields are never mutated independently; the
// whole state is replaced on every operation.
type CartState struct {
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	Currency  Currency        `json:"currency"`

	// Updating is transient and never persisted.
	Updating bool `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (cs CartState) Clone() CartState {
	out := cs
	if cs.Items != nil {
		out.Items = make([]LineItem, len(cs.Items))
		for i, item := range cs.Items {
			out.Items[i] = item.Clone()
		}
	}
	return out
}

// FindItem returns the line item with the given id and its position,
// or -1 when absent.
func (cs CartState) FindItem(itemID string) (LineItem, int) {
	for i, item := range cs.Items {
		if item.ID == itemID {
			return item, i
		}
	}
	return LineItem{}, -1
}

// FindProduct returns the line item holding the given product id, or -1.
func (cs CartState) FindProduct(productID string) (LineItem, int) {
	for i, item := range cs.Items {
		if item.Product.ID == productID {
			return item, i
		}
	}
	return LineItem{}, -1
}

// CartConfig carries the pricing and limit knobs of the cart.
type CartConfig struct {
	TaxRate               decimal.Decimal `json:"taxRate"`
	BaseShippingCost      decimal.Decimal `json:"baseShippingCost"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	DefaultCurrency       Currency        `json:"defaultCurrency"`
	MaxQuantityPerItem    int             `json:"maxQuantityPerItem"`
	MaxTotalItems         int             `json:"maxTotalItems"`
}

// DefaultConfig returns the storefront defaults: 19% VAT, 15000 COP flat
// shipping waived from a 150000 COP subtotal.
func DefaultConfig() CartConfig {
	return CartConfig{
		TaxRate:               decimal.RequireFromString("0.19"),
		BaseShippingCost:      decimal.NewFromInt(15000),
		FreeShippingThreshold: decimal.NewFromInt(150000),
		DefaultCurrency:       COP,
		MaxQuantityPerItem:    50,
		MaxTotalItems:         100,
	}
}

// ConfigPatch is a partial config override; nil fields are left untouched.
type ConfigPatch struct {
	TaxRate               *decimal.Decimal
	BaseShippingCost      *decimal.Decimal
	FreeShippingThreshold *decimal.Decimal
	DefaultCurrency       *Currency
	MaxQuantityPerItem    *int
	MaxTotalItems         *int
}

// Apply merges the patch into the config and returns the result.
func (p ConfigPatch) Apply(cfg CartConfig) CartConfig {
	if p.TaxRate != nil {
		cfg.TaxRate = *p.TaxRate
	}
	if p.BaseShippingCost != nil {
		cfg.BaseShippingCost = *p.BaseShippingCost
	}
	if p.FreeShippingThreshold != nil {
		cfg.FreeShippingThreshold = *p.FreeShippingThreshold
	}
	if p.DefaultCurrency != nil {
		cfg.DefaultCurrency = *p.DefaultCurrency
	}
	if p.MaxQuantityPerItem != nil {
		cfg.MaxQuantityPerItem = *p.MaxQuantityPerItem
	}
	if p.MaxTotalItems != nil {
		cfg.MaxTotalItems = *p.MaxTotalItems
	}
	return cfg
}

// AddOptions tune a single AddItem call.
type AddOptions struct {
	// Quantity defaults to 1 when zero or negative.
	Quantity int
	// Replace sets the line quantity instead of accumulating it.
	Replace bool
	// Currency overrides the product currency for this line.
	Currency *Currency
	// UnitPrice overrides the product price for this line.
	UnitPrice *decimal.Decimal
}
