package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExchangeRateRecord stores the official or manually entered conversion rate
// for one currency on one calendar day. Unique key: (currency, day).
// Records dated strictly before the current day are immutable.
type ExchangeRateRecord struct {
	ID       uuid.UUID
	Currency Currency
	Date     time.Time // day granularity, normalized to midnight UTC
	Rate     decimal.Decimal
	Source   RateSource
}

// DayOf truncates a timestamp to its calendar day in UTC.
// All rate records and lookups are keyed by this.
func DayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
