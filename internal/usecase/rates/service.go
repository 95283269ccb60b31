package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// Feed obtains the official rate for a day from the external provider
type Feed interface {
	FetchRate(ctx context.Context, currency domain.Currency, day time.Time) (decimal.Decimal, error)
}

// Service maintains the daily exchange rate ledger: manual upserts guarded
// by the past-day immutability rule, and the scheduled daily fetch with its
// last-known-rate fallback.
type Service struct {
	RateRepo domain.ExchangeRateRepository
	Feed     Feed
	Logger   *slog.Logger

	// Now is overridable in tests; defaults to time.Now
	Now func() time.Time
}

// NewService creates a new rates Service instance
func NewService(rateRepo domain.ExchangeRateRepository, feed Feed, logger *slog.Logger) *Service {
	return &Service{
		RateRepo: rateRepo,
		Feed:     feed,
		Logger:   logger,
		Now:      time.Now,
	}
}

// Upsert creates or overwrites the rate record for (currency, day).
// Same-day overwrites are permitted for intra-day correction; any day
// strictly before the current day is immutable.
func (s *Service) Upsert(ctx context.Context, currency domain.Currency, day time.Time, rate decimal.Decimal, source domain.RateSource) error {
	if rate.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("exchange rate must be positive: %w", domain.ErrValidation)
	}

	day = domain.DayOf(day)
	today := domain.DayOf(s.Now())

	if day.Before(today) {
		return fmt.Errorf("rate for %s %s is historical and cannot be changed: %w",
			currency, day.Format("2006-01-02"), domain.ErrImmutabilityViolation)
	}

	record := &domain.ExchangeRateRecord{
		ID:       uuid.New(),
		Currency: currency,
		Date:     day,
		Rate:     rate,
		Source:   source,
	}

	if err := s.RateRepo.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert rate: %w", err)
	}

	return nil
}

// fetchToday attempts to obtain today's official rate from the feed.
// Kept separate from the fallback policy so both steps test independently.
func (s *Service) fetchToday(ctx context.Context, currency domain.Currency, today time.Time) (decimal.Decimal, error) {
	rate, err := s.Feed.FetchRate(ctx, currency, today)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, fmt.Errorf("feed returned non-positive rate %s: %w", rate.String(), domain.ErrValidation)
	}
	return rate, nil
}

// fallbackRate applies the degraded-mode policy: reuse the most recently
// stored rate of any date. Fails with ErrNoRateAvailable on an empty ledger.
func (s *Service) fallbackRate(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	record, err := s.RateRepo.GetLatest(ctx, currency)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Decimal{}, fmt.Errorf("ledger empty, no fallback rate for %s: %w", currency, domain.ErrNoRateAvailable)
		}
		return decimal.Decimal{}, err
	}
	return record.Rate, nil
}

// FetchDaily obtains today's official rate and upserts it for today.
// On feed failure it degrades gracefully to the last known rate, still
// stored under the official source tag so conversions for "now" always
// resolve. Only an empty ledger makes the daily fetch fail.
func (s *Service) FetchDaily(ctx context.Context, currency domain.Currency) error {
	today := domain.DayOf(s.Now())

	rate, err := s.fetchToday(ctx, currency, today)
	if err != nil {
		s.Logger.Warn("official rate feed failed, falling back to last known rate",
			slog.String("currency", string(currency)),
			slog.Any("error", err),
		)

		rate, err = s.fallbackRate(ctx, currency)
		if err != nil {
			return err
		}
	}

	return s.Upsert(ctx, currency, today, rate, domain.RateSourceOfficial)
}

// RunDaily is the scheduled entry point. Failures are logged and swallowed;
// the next scheduled run retries naturally because the upsert is idempotent
// by day key.
func (s *Service) RunDaily(ctx context.Context, currency domain.Currency) {
	if err := s.FetchDaily(ctx, currency); err != nil {
		s.Logger.Error("daily rate fetch failed",
			slog.String("currency", string(currency)),
			slog.Any("error", err),
		)
		return
	}
	s.Logger.Info("daily rate stored", slog.String("currency", string(currency)))
}
