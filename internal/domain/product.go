package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the closed set of product shapes the storefront hands to the cart.
// Two variants exist: the current catalog shape and the legacy shape still
// returned by the old product API.
type Product interface {
	isProduct()
}

// CatalogProduct is the current product-service shape.
type CatalogProduct struct {
	ID          string
	Name        string
	Price       Money
	ImageURL    string
	Description string
	// Stock is nil when the catalog does not declare availability.
	Stock *int
}

func (CatalogProduct) isProduct() {}

// LegacyProduct is the shape of the deprecated product API.
type LegacyProduct struct {
	Code      string
	Title     string
	UnitCost  decimal.Decimal
	Currency  string
	Thumbnail string
	Summary   string
	// Available is negative when stock is unknown.
	Available int
}

func (LegacyProduct) isProduct() {}

// ProductInfo is the common projection the cart works with, regardless of
// which product variant was passed in.
type ProductInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       Money  `json:"price"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Stock       *int   `json:"stock,omitempty"`
}

// ResolveProduct extracts the common projection from either product variant.
func ResolveProduct(p Product) (ProductInfo, error) {
	switch p := p.(type) {
	case CatalogProduct:
		if p.ID == "" {
			return ProductInfo{}, fmt.Errorf("catalog product has no ID")
		}

		info := ProductInfo{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
			Description: p.Description,
		}
		if p.Stock != nil {
			stock := *p.Stock
			info.Stock = &stock
		}
		return info, nil

	case LegacyProduct:
		if p.Code == "" {
			return ProductInfo{}, fmt.Errorf("legacy product has no code")
		}

		cur, err := ParseCurrency(p.Currency)
		if err != nil {
			return ProductInfo{}, fmt.Errorf("ParseCurrency: %w", err)
		}

		info := ProductInfo{
			ID:          p.Code,
			Name:        p.Title,
			Price:       Money{Amount: p.UnitCost, Currency: cur},
			ImageURL:    p.Thumbnail,
			Description: p.Summary,
		}
		if p.Available >= 0 {
			stock := p.Available
			info.Stock = &stock
		}
		return info, nil

	default:
		return ProductInfo{}, fmt.Errorf("unknown product variant %T", p)
	}
}

func (p ProductInfo) clone() ProductInfo {
	out := p
	if p.Stock != nil {
		stock := *p.Stock
		out.Stock = &stock
	}
	return out
}
