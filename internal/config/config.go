package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTTTLMin   int    `env:"JWT_TTL_MINUTES" envDefault:"60"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	// VAT percentage applied to invoice subtotals net of discount.
	// Kept as a string so fractional rates parse exactly into a decimal.
	VATRatePct string `env:"VAT_RATE_PCT" envDefault:"15"`

	// Fiscal year bounds; journal entries must fall inside them.
	FiscalYearStart string `env:"FISCAL_YEAR_START" envDefault:"2025-01-01"`
	FiscalYearEnd   string `env:"FISCAL_YEAR_END" envDefault:"2025-12-31"`

	// Control accounts used by invoice and payment postings.
	CashAccountCode       string `env:"CASH_ACCOUNT_CODE" envDefault:"1100"`
	BankAccountCode       string `env:"BANK_ACCOUNT_CODE" envDefault:"1110"`
	ReceivableAccountCode string `env:"RECEIVABLE_ACCOUNT_CODE" envDefault:"1200"`
	VATAccountCode        string `env:"VAT_ACCOUNT_CODE" envDefault:"2100"`
	RevenueAccountCode    string `env:"REVENUE_ACCOUNT_CODE" envDefault:"4000"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, _, err := cfg.FiscalYear(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.parseVATRate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// VATRate returns the configured VAT percentage. Load validates the
// value, so a zero rate here means the config was built by hand with a
// malformed VATRatePct.
func (c *Config) VATRate() decimal.Decimal {
	rate, err := c.parseVATRate()
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (c *Config) parseVATRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.VATRatePct)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parseVATRate: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("parseVATRate: rate %s is negative", c.VATRatePct)
	}
	return rate, nil
}

func (c *Config) FiscalYear() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", c.FiscalYearStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("FiscalYear: parse start: %w", err)
	}
	end, err = time.Parse("2006-01-02", c.FiscalYearEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("FiscalYear: parse end: %w", err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("FiscalYear: start %s not before end %s", c.FiscalYearStart, c.FiscalYearEnd)
	}
	return start, end, nil
}
