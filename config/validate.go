package config

import (
	"fmt"
	"math"
	"strings"
)

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("listen address must be configured")
	}
	if !strings.HasPrefix(cfg.MerchantAddress, "bitcoincash:") {
		return fmt.Errorf("merchant_address must be a bitcoincash: address")
	}
	if cfg.Checkout.Expiry.Duration <= 0 {
		return fmt.Errorf("checkout.expiry must be positive")
	}
	if cfg.Checkout.BroadcastDelay.Duration < 0 || cfg.Checkout.ConfirmBaseDelay.Duration < 0 || cfg.Checkout.ConfirmJitter.Duration < 0 {
		return fmt.Errorf("checkout delays must not be negative")
	}
	p := cfg.Checkout.Probability()
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("checkout.confirm_probability must be within [0, 1]")
	}
	if cfg.Rate.Initial <= 0 || math.IsInf(cfg.Rate.Initial, 0) || math.IsNaN(cfg.Rate.Initial) {
		return fmt.Errorf("rate.initial must be positive")
	}
	if cfg.Treasury.HotWallet < 0 || (cfg.Treasury.ColdWallet != nil && *cfg.Treasury.ColdWallet < 0) {
		return fmt.Errorf("treasury wallets must not be negative")
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if cfg.Webhook.Enabled() && strings.TrimSpace(cfg.Webhook.Secret) == "" {
		return fmt.Errorf("webhook.secret is required when webhook.url is set")
	}
	if cfg.Webhook.MaxAttempts < 0 {
		return fmt.Errorf("webhook.max_attempts must not be negative")
	}
	return nil
}
