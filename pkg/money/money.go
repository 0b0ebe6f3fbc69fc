// Package money formats statement amounts with ISO-4217 currency rules.
// Amounts are held in integer minor units, the pipeline keeps decimal.Decimal
// and converts at the edges.
package money

import (
	"errors"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	EUR = "EUR" // Euro
	USD = "USD" // US Dollar
	GBP = "GBP" // British Pound
	CHF = "CHF" // Swiss Franc
	JPY = "JPY" // Japanese Yen (no decimal places)
)

// ErrCurrencyMismatch is returned when adding amounts of different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, currencyCode)}
}

// NewFromDecimal rounds amount half away from zero to the currency's minor unit.
// Unknown currency codes fall back to EUR.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currencyCode = knownOrDefault(currencyCode)
	currency := money.GetCurrency(currencyCode)

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := amount.Mul(multiplier).Round(0).IntPart()

	return New(minor, currencyCode)
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Negate returns the value with the opposite sign
func (m *Money) Negate() *Money {
	if m == nil || m.m == nil {
		return m
	}
	return &Money{m: m.m.Multiply(-1)}
}

// Add returns m + other. Both must share a currency.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	sum, err := m.m.Add(other.m)
	if err != nil {
		return nil, ErrCurrencyMismatch
	}
	return &Money{m: sum}, nil
}

// Display returns a formatted string for display (e.g., "€1,234.56")
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return Zero(EUR).Display()
	}
	return m.m.Display()
}

// String returns the amount as a decimal string with the currency's precision (e.g., "1234.56")
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction))
}

// ToDecimal converts to decimal.Decimal
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return decimal.NewFromInt(m.m.Amount()).Div(divisor)
}

// FormatDecimal renders an amount for humans, e.g. FormatDecimal(45.2, "EUR") is "€45.20".
func FormatDecimal(amount decimal.Decimal, currencyCode string) string {
	return NewFromDecimal(amount, currencyCode).Display()
}

// Sum adds amounts in one currency.
func Sum(amounts []decimal.Decimal, currencyCode string) *Money {
	currencyCode = knownOrDefault(currencyCode)
	total := Zero(currencyCode)
	for _, a := range amounts {
		// Same currency by construction.
		total, _ = total.Add(NewFromDecimal(a, currencyCode))
	}
	return total
}

func knownOrDefault(currencyCode string) string {
	if money.GetCurrency(currencyCode) == nil {
		return EUR
	}
	return currencyCode
}
