package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// exchangeRateRepository implements domain.ExchangeRateRepository
type exchangeRateRepository struct {
	db *DB
}

// NewExchangeRateRepository creates a new exchange rate repository
func NewExchangeRateRepository(db *DB) domain.ExchangeRateRepository {
	return &exchangeRateRepository{db: db}
}

// GetOnOrBefore retrieves the latest record dated at or before the given day
func (r *exchangeRateRepository) GetOnOrBefore(ctx context.Context, currency domain.Currency, day time.Time) (*domain.ExchangeRateRecord, error) {
	query := `
		SELECT id, currency, date, rate, source
		FROM exchange_rates
		WHERE currency = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`
	return r.scanOne(r.db.q(ctx).QueryRowContext(ctx, query, string(currency), domain.DayOf(day)))
}

// GetLatest retrieves the single most recent record of any date
func (r *exchangeRateRepository) GetLatest(ctx context.Context, currency domain.Currency) (*domain.ExchangeRateRecord, error) {
	query := `
		SELECT id, currency, date, rate, source
		FROM exchange_rates
		WHERE currency = $1
		ORDER BY date DESC
		LIMIT 1
	`
	return r.scanOne(r.db.q(ctx).QueryRowContext(ctx, query, string(currency)))
}

// Upsert creates or overwrites the record keyed by (currency, day)
func (r *exchangeRateRepository) Upsert(ctx context.Context, record *domain.ExchangeRateRecord) error {
	query := `
		INSERT INTO exchange_rates (id, currency, date, rate, source)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (currency, date)
		DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source
	`

	_, err := r.db.q(ctx).ExecContext(ctx, query,
		record.ID,
		string(record.Currency),
		domain.DayOf(record.Date),
		record.Rate.String(),
		string(record.Source),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}

	return nil
}

// scanOne scans a single exchange rate row
func (r *exchangeRateRepository) scanOne(row *sql.Row) (*domain.ExchangeRateRecord, error) {
	var record domain.ExchangeRateRecord
	var currency, rateStr, source string

	err := row.Scan(&record.ID, &currency, &record.Date, &rateStr, &source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("exchange rate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}

	record.Currency = domain.Currency(currency)
	record.Rate = rate
	record.Source = domain.RateSource(source)
	return &record, nil
}
