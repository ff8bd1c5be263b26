// Package currency formats subscription amounts for alert payloads.
// Amounts are decimal.Decimal throughout; floats never touch money.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	VND Currency = "VND"
)

// DefaultCurrency is used when a subscription carries no currency.
const DefaultCurrency = USD

type info struct {
	Symbol        string
	DecimalPlaces int32
}

var known = map[Currency]info{
	USD: {Symbol: "$", DecimalPlaces: 2},
	EUR: {Symbol: "€", DecimalPlaces: 2},
	GBP: {Symbol: "£", DecimalPlaces: 2},
	JPY: {Symbol: "¥", DecimalPlaces: 0},
	VND: {Symbol: "₫", DecimalPlaces: 0},
}

// Normalize upper-cases a code and falls back to DefaultCurrency when empty.
func Normalize(code string) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return Currency(code)
}

// Money is an amount tagged with its currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

func NewMoney(amount decimal.Decimal, code string) Money {
	return Money{Amount: amount, Currency: Normalize(code)}
}

// Round rounds to the currency's minor unit; unknown codes use two places.
func (m Money) Round() decimal.Decimal {
	places := int32(2)
	if i, ok := known[m.Currency]; ok {
		places = i.DecimalPlaces
	}
	return m.Amount.Round(places)
}

// Display renders "<amount> <CODE>" with trailing zeros dropped, e.g. "99 USD"
// or "12.5 EUR". This is the form alert cards show.
func (m Money) Display() string {
	return fmt.Sprintf("%s %s", m.Round().String(), m.Currency)
}

// Format renders the amount with its symbol and fixed minor units, e.g. "$99.00".
func (m Money) Format() string {
	i, ok := known[m.Currency]
	if !ok {
		return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
	}
	return i.Symbol + m.Amount.StringFixed(i.DecimalPlaces)
}
