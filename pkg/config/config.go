// Package config loads the TOML run configuration for a resolution run.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// RunConfig is the planner-editable configuration of one resolution run
type RunConfig struct {
	// SyntheticPrefix marks lot codes created by the engine. Must not be
	// empty, otherwise cleanup could never tell its codes from real ones.
	SyntheticPrefix string `toml:"synthetic_prefix"`

	// HorizonDays bounds the ledger cutoff relative to the start date
	HorizonDays int `toml:"horizon_days"`

	StartDate string `toml:"start_date"`

	ExcessPolicy        string  `toml:"excess_policy"`
	ForecastConsumption string  `toml:"forecast_consumption"`
	LotPegging          bool    `toml:"lot_pegging"`
	MinOrderTolerance   float64 `toml:"min_order_tolerance"`
}

// Default returns the configuration used when no file is given
func Default() RunConfig {
	return RunConfig{
		SyntheticPrefix:   "MRP",
		HorizonDays:       365,
		ExcessPolicy:      "last_job",
		MinOrderTolerance: 0.1,
	}
}

// Load reads a RunConfig from a TOML file, filling unset fields from Default
func Load(path string) (RunConfig, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields that have no safe fallback
func (c RunConfig) Validate() error {
	if c.SyntheticPrefix == "" {
		return fmt.Errorf("synthetic_prefix cannot be empty")
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive, got %d", c.HorizonDays)
	}
	if _, err := c.ParsedExcessPolicy(); err != nil {
		return err
	}
	if _, err := c.ParsedForecastMode(); err != nil {
		return err
	}
	if c.StartDate != "" {
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return fmt.Errorf("invalid start_date %q (expected YYYY-MM-DD)", c.StartDate)
		}
	}
	if c.MinOrderTolerance < 0 {
		return fmt.Errorf("min_order_tolerance cannot be negative")
	}
	return nil
}

// Start returns the run start date; today when unset
func (c RunConfig) Start(now time.Time) time.Time {
	if c.StartDate == "" {
		return now.Truncate(24 * time.Hour)
	}
	start, _ := time.Parse("2006-01-02", c.StartDate)
	return start
}

// Cutoff returns the ledger horizon for the given start date
func (c RunConfig) Cutoff(start time.Time) time.Time {
	return start.AddDate(0, 0, c.HorizonDays)
}

// ParsedExcessPolicy maps the configured name to its enum value
func (c RunConfig) ParsedExcessPolicy() (entities.ExcessPolicy, error) {
	switch strings.ToLower(c.ExcessPolicy) {
	case "", "last_job":
		return entities.ExcessToLastJob, nil
	case "split_equal":
		return entities.ExcessSplitEqual, nil
	case "split_proportional":
		return entities.ExcessSplitProportional, nil
	default:
		return entities.ExcessToLastJob,
			fmt.Errorf("invalid excess_policy %q (expected: last_job, split_equal, or split_proportional)", c.ExcessPolicy)
	}
}

// ParsedForecastMode maps the configured name to its enum value
func (c RunConfig) ParsedForecastMode() (entities.ForecastConsumptionMode, error) {
	switch strings.ToLower(c.ForecastConsumption) {
	case "", "none":
		return entities.ForecastConsumeNone, nil
	case "backward":
		return entities.ForecastConsumeBackward, nil
	case "forward":
		return entities.ForecastConsumeForward, nil
	default:
		return entities.ForecastConsumeNone,
			fmt.Errorf("invalid forecast_consumption %q (expected: none, backward, or forward)", c.ForecastConsumption)
	}
}

// Tolerance returns the min-order rounding tolerance as a decimal fraction
func (c RunConfig) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(c.MinOrderTolerance)
}
