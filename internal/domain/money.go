package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Currency wraps currency.Unit so it serializes as its ISO 4217 code.
type Currency struct {
	currency.Unit
}

var (
	COP = Currency{currency.MustParseISO("COP")}
	USD = Currency{currency.USD}
	EUR = Currency{currency.EUR}
)

// SupportedCurrencies are the codes the storefront accepts.
var SupportedCurrencies = []Currency{COP, USD, EUR}

func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}
	return Currency{unit}, nil
}

func (c Currency) IsZero() bool {
	return c.Unit == currency.Unit{}
}

func (c Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Unit.String())
}

func (c *Currency) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}

	parsed, err := ParseCurrency(code)
	if err != nil {
		return err
	}

	c.Unit = parsed.Unit
	return nil
}

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// Mul returns the money multiplied by a whole quantity.
func (m Money) Mul(qty int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(qty))),
		Currency: m.Currency,
	}
}
