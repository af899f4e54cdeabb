// Package config loads the nexuscashd configuration from YAML or TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the demo register.
const (
	DefaultListen             = ":8088"
	DefaultMerchantAddress    = "bitcoincash:qph7w9merchant8qv8xdem0m28jk4alhjk2jv7r3"
	DefaultCustomerWallet     = "bitcoincash:qrx9...newbuyer"
	DefaultSessionDB          = "nexuscash-session.db"
	DefaultExpiry             = 5 * time.Minute
	DefaultBroadcastDelay     = 1200 * time.Millisecond
	DefaultConfirmBaseDelay   = 3200 * time.Millisecond
	DefaultConfirmJitter      = 2200 * time.Millisecond
	DefaultConfirmProbability = 0.9
	DefaultRate               = 300.0
	DefaultHotWallet          = 0.842
	DefaultColdWallet         = 2.4
	DefaultSweepThreshold     = 1.0
	DefaultRequestsPerMinute  = 600
	DefaultBurst              = 60
)

// Config captures the runtime configuration for nexuscashd.
type Config struct {
	Listen          string          `yaml:"listen" toml:"listen"`
	Env             string          `yaml:"env" toml:"env"`
	LogLevel        string          `yaml:"log_level" toml:"log_level"`
	LogFile         string          `yaml:"log_file" toml:"log_file"`
	SessionDB       string          `yaml:"session_db" toml:"session_db"`
	MerchantAddress string          `yaml:"merchant_address" toml:"merchant_address"`
	CustomerWallet  string          `yaml:"customer_wallet" toml:"customer_wallet"`
	Seed            uint64          `yaml:"seed" toml:"seed"`
	Checkout        CheckoutConfig  `yaml:"checkout" toml:"checkout"`
	Rate            RateConfig      `yaml:"rate" toml:"rate"`
	Treasury        TreasuryConfig  `yaml:"treasury" toml:"treasury"`
	Telemetry       TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Webhook         WebhookConfig   `yaml:"webhook" toml:"webhook"`
}

// CheckoutConfig controls the simulated payment lifecycle.
type CheckoutConfig struct {
	Expiry             Duration `yaml:"expiry" toml:"expiry"`
	BroadcastDelay     Duration `yaml:"broadcast_delay" toml:"broadcast_delay"`
	ConfirmBaseDelay   Duration `yaml:"confirm_base_delay" toml:"confirm_base_delay"`
	ConfirmJitter      Duration `yaml:"confirm_jitter" toml:"confirm_jitter"`
	ConfirmProbability *float64 `yaml:"confirm_probability" toml:"confirm_probability"`
}

// RateConfig seeds the exchange-rate engine.
type RateConfig struct {
	Initial float64 `yaml:"initial" toml:"initial"`
}

// TreasuryConfig seeds the treasury ledger.
type TreasuryConfig struct {
	HotWallet      float64  `yaml:"hot_wallet" toml:"hot_wallet"`
	ColdWallet     *float64 `yaml:"cold_wallet" toml:"cold_wallet"`
	SweepThreshold float64  `yaml:"sweep_threshold" toml:"sweep_threshold"`
	AutoMint       *bool    `yaml:"auto_mint" toml:"auto_mint"`
	AutoSweep      bool     `yaml:"auto_sweep" toml:"auto_sweep"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
	Traces   bool   `yaml:"traces" toml:"traces"`
	Metrics  bool   `yaml:"metrics" toml:"metrics"`
}

// RateLimitConfig bounds per-client API traffic.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// WebhookConfig points settlement notifications at a merchant endpoint.
// Deliveries are disabled while URL is empty.
type WebhookConfig struct {
	URL         string `yaml:"url" toml:"url"`
	Secret      string `yaml:"secret" toml:"secret"`
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts"`
}

// Enabled reports whether a webhook endpoint is configured.
func (w WebhookConfig) Enabled() bool { return strings.TrimSpace(w.URL) != "" }

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// Load reads configuration from path. Files ending in .toml are decoded as
// TOML, everything else as YAML. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyDefaults(&cfg)
	if env := strings.TrimSpace(os.Getenv("NEXUSCASH_ENV")); env != "" {
		cfg.Env = env
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config: %w", err)
		}
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Probability returns the configured success probability.
func (c CheckoutConfig) Probability() float64 {
	if c.ConfirmProbability == nil {
		return DefaultConfirmProbability
	}
	return *c.ConfirmProbability
}

// AutoMintEnabled returns the auto-mint flag, on unless disabled.
func (t TreasuryConfig) AutoMintEnabled() bool {
	return t.AutoMint == nil || *t.AutoMint
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SessionDB == "" {
		cfg.SessionDB = DefaultSessionDB
	}
	if cfg.MerchantAddress == "" {
		cfg.MerchantAddress = DefaultMerchantAddress
	}
	if cfg.CustomerWallet == "" {
		cfg.CustomerWallet = DefaultCustomerWallet
	}
	if cfg.Checkout.Expiry.Duration == 0 {
		cfg.Checkout.Expiry.Duration = DefaultExpiry
	}
	if cfg.Checkout.BroadcastDelay.Duration == 0 {
		cfg.Checkout.BroadcastDelay.Duration = DefaultBroadcastDelay
	}
	if cfg.Checkout.ConfirmBaseDelay.Duration == 0 {
		cfg.Checkout.ConfirmBaseDelay.Duration = DefaultConfirmBaseDelay
	}
	if cfg.Checkout.ConfirmJitter.Duration == 0 {
		cfg.Checkout.ConfirmJitter.Duration = DefaultConfirmJitter
	}
	if cfg.Checkout.ConfirmProbability == nil {
		p := DefaultConfirmProbability
		cfg.Checkout.ConfirmProbability = &p
	}
	if cfg.Rate.Initial == 0 {
		cfg.Rate.Initial = DefaultRate
	}
	if cfg.Treasury.HotWallet == 0 {
		cfg.Treasury.HotWallet = DefaultHotWallet
	}
	if cfg.Treasury.ColdWallet == nil {
		cold := DefaultColdWallet
		cfg.Treasury.ColdWallet = &cold
	}
	if cfg.Treasury.SweepThreshold == 0 {
		cfg.Treasury.SweepThreshold = DefaultSweepThreshold
	}
	if cfg.Treasury.AutoMint == nil {
		enabled := true
		cfg.Treasury.AutoMint = &enabled
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultBurst
	}
}
