// Package config provides configuration loading for the task manager.
// Configuration is loaded in layers: defaults -> base.yaml -> env vars
// with the APP_ prefix.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oybek94/Prodeklarant-taskmanager-sub002/internal/domain"
)

// Config holds all configuration for the process
type Config struct {
	DB       DBConfig       `koanf:"db"`
	Log      LogConfig      `koanf:"log"`
	Feed     FeedConfig     `koanf:"feed"`
	Money    MoneyConfig    `koanf:"money"`
	Earnings EarningsConfig `koanf:"earnings"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Pipeline PipelineConfig `koanf:"pipeline"`
}

// DBConfig holds PostgreSQL connection settings
type DBConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"`
}

// ConnString builds the lib/pq connection string
func (c *DBConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LogConfig holds structured logging settings
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// FeedConfig holds official rate feed client settings
type FeedConfig struct {
	BaseURL        string               `koanf:"base_url"`
	APIKey         string               `koanf:"api_key"`
	Timeout        time.Duration        `koanf:"timeout"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the feed client
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}

// MoneyConfig holds monetary invariant settings
type MoneyConfig struct {
	// ToleranceUZS is the permitted drift between base_amount and
	// original_amount * exchange_rate, in base-currency units
	ToleranceUZS float64 `koanf:"tolerance_uzs"`
}

// Tolerance returns the drift tolerance as a decimal
func (c *MoneyConfig) Tolerance() decimal.Decimal {
	if c.ToleranceUZS <= 0 {
		return domain.DefaultBaseTolerance
	}
	return decimal.NewFromFloat(c.ToleranceUZS)
}

// EarningsConfig holds compensation ledger settings
type EarningsConfig struct {
	// CorrectionGraceWindow bounds how long a manual correction stays
	// reversible after creation
	CorrectionGraceWindow time.Duration `koanf:"correction_grace_window"`
}

// ScheduleConfig holds cron expressions for the recurring jobs
type ScheduleConfig struct {
	DailyRateFetch   string `koanf:"daily_rate_fetch"`
	NightlyRecompute string `koanf:"nightly_recompute"`
}

// PipelineConfig holds the static per-stage pricing tables
type PipelineConfig struct {
	// StagePrices maps stage name to the fixed USD price paid on completion
	StagePrices map[string]float64 `koanf:"stage_prices"`
	// AdminPercents maps stage name to the percentage of the worker-price
	// snapshot earned by an administrator assignee
	AdminPercents map[string]float64 `koanf:"admin_percents"`
}

// Definition converts the pricing tables into the domain form
func (c *PipelineConfig) Definition() *domain.PipelineDefinition {
	def := &domain.PipelineDefinition{
		StagePrices:   make(map[domain.StageName]decimal.Decimal, len(c.StagePrices)),
		AdminPercents: make(map[domain.StageName]decimal.Decimal, len(c.AdminPercents)),
	}
	for name, price := range c.StagePrices {
		def.StagePrices[domain.StageName(name)] = decimal.NewFromFloat(price)
	}
	for name, percent := range c.AdminPercents {
		def.AdminPercents[domain.StageName(name)] = decimal.NewFromFloat(percent)
	}
	return def
}
