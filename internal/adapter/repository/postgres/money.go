package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// moneyRow holds the five persisted columns of a MonetaryAmount as scanned
// strings; DECIMAL columns are parsed through shopspring/decimal to avoid
// float rounding
type moneyRow struct {
	original string
	currency string
	rate     string
	base     string
	source   string
}

// fields returns scan destinations in column order:
// original_amount, original_currency, exchange_rate, base_amount, rate_source
func (r *moneyRow) fields() []any {
	return []any{&r.original, &r.currency, &r.rate, &r.base, &r.source}
}

// toDomain parses the scanned strings into a MonetaryAmount and validates
// the currency/rate invariants, so drifted or corrupted figures fail the
// read instead of flowing into computations
func (r *moneyRow) toDomain(tolerance decimal.Decimal) (domain.MonetaryAmount, error) {
	original, err := decimal.NewFromString(r.original)
	if err != nil {
		return domain.MonetaryAmount{}, fmt.Errorf("failed to parse original amount: %w", err)
	}
	rate, err := decimal.NewFromString(r.rate)
	if err != nil {
		return domain.MonetaryAmount{}, fmt.Errorf("failed to parse exchange rate: %w", err)
	}
	base, err := decimal.NewFromString(r.base)
	if err != nil {
		return domain.MonetaryAmount{}, fmt.Errorf("failed to parse base amount: %w", err)
	}

	m := domain.MonetaryAmount{
		OriginalAmount:   original,
		OriginalCurrency: domain.Currency(r.currency),
		ExchangeRate:     rate,
		BaseAmount:       base,
		RateSource:       domain.RateSource(r.source),
	}

	if err := m.Validate(tolerance); err != nil {
		return domain.MonetaryAmount{}, fmt.Errorf("persisted amount violates monetary invariants: %w", err)
	}

	return m, nil
}

// moneyArgs returns exec arguments in the same column order as fields
func moneyArgs(m domain.MonetaryAmount) []any {
	return []any{
		m.OriginalAmount.String(),
		string(m.OriginalCurrency),
		m.ExchangeRate.String(),
		m.BaseAmount.String(),
		string(m.RateSource),
	}
}
