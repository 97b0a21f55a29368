package config

import (
	"fmt"
	"time"
)

type Sale struct {
	// MaxAttempts bounds how many times a sale transaction is tried when it
	// loses a commit race against a concurrent transaction.
	MaxAttempts    uint64        `env:"SALE_MAX_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay time.Duration `env:"SALE_RETRY_BASE_DELAY" envDefault:"10ms"`
	// Timezone defines the calendar day used by the today/yesterday filters.
	Timezone          string `env:"SALE_TIMEZONE" envDefault:"America/Sao_Paulo"`
	LowStockThreshold int    `env:"SALE_LOW_STOCK_THRESHOLD" envDefault:"2"`
}

// Location loads the configured timezone.
func (s Sale) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", s.Timezone, err)
	}
	return loc, nil
}
