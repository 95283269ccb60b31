// Package ratefeed implements the official exchange rate feed client over
// the central bank HTTP API. Calls are bounded by their own timeout and
// wrapped in a circuit breaker so a flapping feed trips open instead of
// hammering the provider; the rates service degrades to the last known
// rate when a call fails.
package ratefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/platform/config"
)

// Client fetches daily official rates from the external feed
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[decimal.Decimal]
}

// New creates a feed client from config
func New(cfg *config.FeedConfig, logger *slog.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker[decimal.Decimal](gobreaker.Settings{
		Name:        "rate-feed",
		MaxRequests: uint32(cfg.CircuitBreaker.HalfOpenLimit),
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.CircuitBreaker.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		breaker:    breaker,
	}
}

// feedRate is one element of the feed's JSON response
type feedRate struct {
	Ccy  string `json:"Ccy"`
	Rate string `json:"Rate"`
	Date string `json:"Date"`
}

// FetchRate obtains the official rate for a currency on a day.
// Implements rates.Feed.
func (c *Client) FetchRate(ctx context.Context, currency domain.Currency, day time.Time) (decimal.Decimal, error) {
	return c.breaker.Execute(func() (decimal.Decimal, error) {
		return c.fetch(ctx, currency, day)
	})
}

// fetch performs one HTTP call against the feed
func (c *Client) fetch(ctx context.Context, currency domain.Currency, day time.Time) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/%s/", c.baseURL, currency, day.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to build feed request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read feed response: %w", err)
	}

	var rates []feedRate
	if err := json.Unmarshal(body, &rates); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode feed response: %w", err)
	}

	for _, r := range rates {
		if r.Ccy != string(currency) {
			continue
		}
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("failed to parse feed rate %q: %w", r.Rate, err)
		}
		return rate, nil
	}

	return decimal.Decimal{}, fmt.Errorf("feed response has no %s rate", currency)
}
