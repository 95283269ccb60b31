package ratefeed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/platform/config"
)

func newTestClient(baseURL string, maxFailures int) *Client {
	return New(&config.FeedConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   maxFailures,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 1,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchRate_ParsesFeedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD/2024-03-15/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"Ccy":"USD","Rate":"12610.43","Date":"15.03.2024"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	rate, err := client.FetchRate(context.Background(), domain.CurrencyUSD, day)

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("12610.43")))
}

func TestFetchRate_SkipsOtherCurrencies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Ccy":"EUR","Rate":"13700.00","Date":"15.03.2024"},{"Ccy":"USD","Rate":"12500.00","Date":"15.03.2024"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)

	rate, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())

	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("12500.00")))
}

func TestFetchRate_MissingCurrencyIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"Ccy":"EUR","Rate":"13700.00","Date":"15.03.2024"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)

	_, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())
	assert.Error(t, err)
}

func TestFetchRate_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 5)

	_, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())
	assert.Error(t, err)
}

func TestFetchRate_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)

	for i := 0; i < 2; i++ {
		_, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())
		require.Error(t, err)
	}

	// Third call fails fast without reaching the feed.
	_, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestFetchRate_SendsAPIKeyHeaderWhenConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sekret", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`[{"Ccy":"USD","Rate":"12500.00","Date":"15.03.2024"}]`))
	}))
	defer server.Close()

	client := New(&config.FeedConfig{
		BaseURL: server.URL,
		APIKey:  "sekret",
		Timeout: 2 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 1,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.FetchRate(context.Background(), domain.CurrencyUSD, time.Now())
	require.NoError(t, err)
}
