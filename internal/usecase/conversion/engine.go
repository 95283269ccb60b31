package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// Engine performs pure currency conversion arithmetic and rate resolution.
// Conversion itself does no I/O; rate resolution reads the rate ledger.
type Engine struct {
	RateRepo domain.ExchangeRateRepository
}

// NewEngine creates a new conversion Engine instance
func NewEngine(rateRepo domain.ExchangeRateRepository) *Engine {
	return &Engine{RateRepo: rateRepo}
}

// Convert converts an amount between currencies at the given rate.
// Identity when the currencies match. USD->UZS multiplies by the rate,
// UZS->USD divides by the same rate.
func Convert(amount decimal.Decimal, from, to domain.Currency, rate decimal.Decimal) (decimal.Decimal, error) {
	if !from.IsValid() {
		return decimal.Decimal{}, fmt.Errorf("unknown source currency %q: %w", from, domain.ErrValidation)
	}
	if !to.IsValid() {
		return decimal.Decimal{}, fmt.Errorf("unknown target currency %q: %w", to, domain.ErrValidation)
	}

	if from == to {
		return amount, nil
	}

	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("conversion rate must be positive: %w", domain.ErrValidation)
	}

	if from == domain.CurrencyUSD {
		return amount.Mul(rate), nil
	}
	return amount.Div(rate), nil
}

// ResolveRate resolves the exchange rate effective for the given date.
// Same-currency requests always return rate 1 without a ledger lookup.
// Otherwise the latest record at or before the requested day wins; when
// none exists the single most recent record of any date is used; when the
// ledger is entirely empty the resolution fails with ErrNoRateAvailable.
func (e *Engine) ResolveRate(ctx context.Context, date time.Time, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	foreign := from
	if foreign == domain.CurrencyUZS {
		foreign = to
	}

	day := domain.DayOf(date)

	record, err := e.RateRepo.GetOnOrBefore(ctx, foreign, day)
	if err == nil {
		return record.Rate, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return decimal.Decimal{}, err
	}

	// No record at or before the requested day; fall back to the most
	// recent record of any date.
	record, err = e.RateRepo.GetLatest(ctx, foreign)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Decimal{}, fmt.Errorf("no rate for %s on or near %s: %w",
				foreign, day.Format("2006-01-02"), domain.ErrNoRateAvailable)
		}
		return decimal.Decimal{}, err
	}

	return record.Rate, nil
}
