package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/agromercado/cartstate/internal/domain"
	"github.com/agromercado/cartstate/internal/pricing"
)

func TestShipping(t *testing.T) {
	base := decimal.NewFromInt(15000)
	threshold := decimal.NewFromInt(150000)

	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{
			name:     "empty cart ships free",
			subtotal: "0",
			want:     "0",
		},
		{
			name:     "below threshold pays base",
			subtotal: "100000",
			want:     "15000",
		},
		{
			name:     "one cent below threshold pays base",
			subtotal: "149999.99",
			want:     "15000",
		},
		{
			name:     "exactly at threshold ships free",
			subtotal: "150000",
			want:     "0",
		},
		{
			name:     "above threshold ships free",
			subtotal: "200000",
			want:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.Shipping(decimal.RequireFromString(tt.subtotal), base, threshold)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"Shipping(%s) = %s, want %s", tt.subtotal, got, tt.want)
		})
	}
}

func TestLineTotal(t *testing.T) {
	got := pricing.LineTotal(decimal.NewFromInt(50000), 2)
	assert.True(t, got.Equal(decimal.NewFromInt(100000)))

	got = pricing.LineTotal(decimal.RequireFromString("2499.50"), 3)
	assert.True(t, got.Equal(decimal.RequireFromString("7498.50")))
}

func TestSummarize(t *testing.T) {
	cfg := domain.DefaultConfig()

	tests := []struct {
		name         string
		lines        []line
		wantCount    int
		wantSubtotal string
		wantTax      string
		wantShipping string
		wantTotal    string
	}{
		{
			name:         "no items",
			wantCount:    0,
			wantSubtotal: "0",
			wantTax:      "0",
			wantShipping: "0",
			wantTotal:    "0",
		},
		{
			name:         "single product below threshold",
			lines:        []line{{price: "50000", qty: 2}},
			wantCount:    2,
			wantSubtotal: "100000",
			wantTax:      "19000",
			wantShipping: "15000",
			wantTotal:    "134000",
		},
		{
			name:         "two products reaching threshold",
			lines:        []line{{price: "50000", qty: 2}, {price: "60000", qty: 1}},
			wantCount:    3,
			wantSubtotal: "160000",
			wantTax:      "30400",
			wantShipping: "0",
			wantTotal:    "190400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := pricing.Summarize(buildItems(tt.lines), cfg)

			assert.Equal(t, tt.wantCount, totals.ItemCount)
			assertDecimal(t, tt.wantSubtotal, totals.Subtotal, "subtotal")
			assertDecimal(t, tt.wantTax, totals.Tax, "tax")
			assertDecimal(t, tt.wantShipping, totals.Shipping, "shipping")
			assertDecimal(t, tt.wantTotal, totals.Total, "total")
		})
	}
}

type line struct {
	price string
	qty   int
}

func buildItems(lines []line) []domain.LineItem {
	var items []domain.LineItem
	for _, l := range lines {
		unit := decimal.RequireFromString(l.price)
		items = append(items, domain.LineItem{
			Quantity:   l.qty,
			UnitPrice:  domain.Money{Amount: unit, Currency: domain.COP},
			TotalPrice: domain.Money{Amount: pricing.LineTotal(unit, l.qty), Currency: domain.COP},
			Currency:   domain.COP,
			AddedAt:    time.Now(),
		})
	}
	return items
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s = %s, want %s", field, got, want)
}
