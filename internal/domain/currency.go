package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency represents a currency handled by the engine
type Currency string

const (
	// CurrencyUSD is the foreign transactable currency
	CurrencyUSD Currency = "USD"
	// CurrencyUZS is the internal base accounting currency to which all
	// foreign amounts are converted for ledger consistency
	CurrencyUZS Currency = "UZS"
)

// IsValid reports whether the currency is one the engine handles
func (c Currency) IsValid() bool {
	return c == CurrencyUSD || c == CurrencyUZS
}

// RateSource represents the provenance of a stored exchange rate
type RateSource string

const (
	RateSourceOfficial RateSource = "OFFICIAL"
	RateSourceManual   RateSource = "MANUAL"
)

// DefaultBaseTolerance is the default permitted drift (in base-currency
// units) between base_amount and original_amount * exchange_rate.
// Overridable through configuration.
var DefaultBaseTolerance = decimal.NewFromFloat(0.01)

// MonetaryAmount represents a currency-converted monetary record.
// The original amount, the exchange rate used and the derived base amount
// are stored together so historical figures never change when rates do.
type MonetaryAmount struct {
	OriginalAmount   decimal.Decimal
	OriginalCurrency Currency
	ExchangeRate     decimal.Decimal
	BaseAmount       decimal.Decimal
	RateSource       RateSource
}

// NewMonetaryAmount builds a MonetaryAmount from an original amount and a
// resolved rate, deriving the base amount.
// For base-currency amounts the rate is forced to 1.
func NewMonetaryAmount(amount decimal.Decimal, currency Currency, rate decimal.Decimal, source RateSource) (MonetaryAmount, error) {
	if !currency.IsValid() {
		return MonetaryAmount{}, fmt.Errorf("unknown currency %q: %w", currency, ErrValidation)
	}

	if currency == CurrencyUZS {
		return MonetaryAmount{
			OriginalAmount:   amount,
			OriginalCurrency: currency,
			ExchangeRate:     decimal.NewFromInt(1),
			BaseAmount:       amount,
			RateSource:       source,
		}, nil
	}

	if rate.LessThanOrEqual(decimal.Zero) {
		return MonetaryAmount{}, fmt.Errorf("exchange rate must be positive for %s amounts: %w", currency, ErrValidation)
	}

	return MonetaryAmount{
		OriginalAmount:   amount,
		OriginalCurrency: currency,
		ExchangeRate:     rate,
		BaseAmount:       amount.Mul(rate),
		RateSource:       source,
	}, nil
}

// Validate ensures the monetary amount adheres to the currency/rate
// invariants:
//   - UZS amounts carry rate 1 and base_amount equal to original_amount
//   - USD amounts carry a positive rate and a base_amount within tolerance
//     of original_amount * exchange_rate
func (m *MonetaryAmount) Validate(tolerance decimal.Decimal) error {
	if !m.OriginalCurrency.IsValid() {
		return fmt.Errorf("unknown currency %q: %w", m.OriginalCurrency, ErrValidation)
	}

	if m.OriginalCurrency == CurrencyUZS {
		if !m.ExchangeRate.Equal(decimal.NewFromInt(1)) {
			return fmt.Errorf("base-currency amount must carry exchange rate 1: %w", ErrValidation)
		}
		if !m.BaseAmount.Equal(m.OriginalAmount) {
			return fmt.Errorf("base-currency amount must equal its base amount: %w", ErrValidation)
		}
		return nil
	}

	if m.ExchangeRate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("foreign amount must carry a positive exchange rate: %w", ErrValidation)
	}

	drift := m.BaseAmount.Sub(m.OriginalAmount.Mul(m.ExchangeRate)).Abs()
	if drift.GreaterThan(tolerance) {
		return fmt.Errorf("base amount drifts %s from original*rate (tolerance %s): %w",
			drift.String(), tolerance.String(), ErrValidation)
	}

	return nil
}

// Negated returns a copy with both the original and base amounts negated.
// Used for reversal and correction ledger entries.
func (m MonetaryAmount) Negated() MonetaryAmount {
	m.OriginalAmount = m.OriginalAmount.Neg()
	m.BaseAmount = m.BaseAmount.Neg()
	return m
}
