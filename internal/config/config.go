// Package config loads and validates the warren.yml campaign configuration.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/warrenhq/warren/internal/treasury"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate when fields are omitted.
const (
	DefaultMaxReferralDepth    = 5
	DefaultMigrationHistoryCap = 10
)

// Config represents the top-level warren.yml configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Campaign string         `yaml:"campaign"`
	Redis    RedisConfig    `yaml:"redis"`
	Rewards  RewardsConfig  `yaml:"rewards"`
	Referral ReferralConfig `yaml:"referral,omitempty"`
	Supply   SupplyConfig   `yaml:"supply,omitempty"`

	// MigrationHistoryCap bounds the retained migration history per account.
	MigrationHistoryCap int `yaml:"migration_history_cap,omitempty"`
}

// RedisConfig specifies the shared store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// RewardsConfig is the campaign reward policy. Amounts are decimal strings so
// campaign operators never meet binary floats.
type RewardsConfig struct {
	DirectSubsidy string   `yaml:"direct_subsidy"`
	Levels        []string `yaml:"levels"` // index 0 = level-1 (direct referrer) reward
}

// ReferralConfig specifies referral chain behavior.
type ReferralConfig struct {
	MaxDepth int `yaml:"max_depth,omitempty"` // Reward fan-out walks at most this many ancestors
}

// SupplyConfig specifies per-namespace total-supply ceilings.
// Partner ceilings come from the partner registry, not from here.
type SupplyConfig struct {
	Primary int64 `yaml:"primary,omitempty"` // 0 = unlimited
}

// Load reads and validates a warren.yml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted optional fields.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Campaign == "" {
		return fmt.Errorf("campaign name cannot be empty")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty")
	}

	if _, err := c.RewardPlan(); err != nil {
		return err
	}

	if c.Referral.MaxDepth < 0 {
		return fmt.Errorf("referral max_depth cannot be negative, got %d", c.Referral.MaxDepth)
	}
	if c.Referral.MaxDepth == 0 {
		c.Referral.MaxDepth = DefaultMaxReferralDepth
	}

	if c.Supply.Primary < 0 {
		return fmt.Errorf("primary supply cannot be negative, got %d", c.Supply.Primary)
	}

	if c.MigrationHistoryCap < 0 {
		return fmt.Errorf("migration_history_cap cannot be negative, got %d", c.MigrationHistoryCap)
	}
	if c.MigrationHistoryCap == 0 {
		c.MigrationHistoryCap = DefaultMigrationHistoryCap
	}

	return nil
}

// RewardPlan parses the reward amounts into the treasury's injected policy.
func (c *Config) RewardPlan() (treasury.RewardPlan, error) {
	subsidy, err := parseAmount("direct_subsidy", c.Rewards.DirectSubsidy)
	if err != nil {
		return treasury.RewardPlan{}, err
	}

	levels := make([]decimal.Decimal, 0, len(c.Rewards.Levels))
	for i, raw := range c.Rewards.Levels {
		amount, err := parseAmount(fmt.Sprintf("levels[%d]", i), raw)
		if err != nil {
			return treasury.RewardPlan{}, err
		}
		levels = append(levels, amount)
	}

	plan := treasury.RewardPlan{DirectSubsidy: subsidy, LevelRewards: levels}
	if err := plan.Validate(); err != nil {
		return treasury.RewardPlan{}, err
	}
	return plan, nil
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rewards.%s amount %q: %w", field, raw, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("rewards.%s cannot be negative, got %s", field, raw)
	}
	return amount, nil
}
