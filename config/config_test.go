package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultListen, cfg.Listen)
	require.Equal(t, 5*time.Minute, cfg.Checkout.Expiry.Duration)
	require.Equal(t, 1200*time.Millisecond, cfg.Checkout.BroadcastDelay.Duration)
	require.Equal(t, 3200*time.Millisecond, cfg.Checkout.ConfirmBaseDelay.Duration)
	require.Equal(t, 2200*time.Millisecond, cfg.Checkout.ConfirmJitter.Duration)
	require.Equal(t, 0.9, cfg.Checkout.Probability())
	require.Equal(t, 300.0, cfg.Rate.Initial)
	require.Equal(t, 0.842, cfg.Treasury.HotWallet)
	require.Equal(t, 2.4, *cfg.Treasury.ColdWallet)
	require.True(t, cfg.Treasury.AutoMintEnabled())
	require.False(t, cfg.Treasury.AutoSweep)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "nexuscashd.yaml", `
listen: ":9090"
env: staging
seed: 42
checkout:
  expiry: 90s
  broadcast_delay: 10ms
  confirm_probability: 0
treasury:
  auto_mint: false
  auto_sweep: true
  sweep_threshold: 2.5
  cold_wallet: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Listen)
	require.Equal(t, "staging", cfg.Env)
	require.Equal(t, uint64(42), cfg.Seed)
	require.Equal(t, 90*time.Second, cfg.Checkout.Expiry.Duration)
	require.Equal(t, 10*time.Millisecond, cfg.Checkout.BroadcastDelay.Duration)
	require.Equal(t, 0.0, cfg.Checkout.Probability())
	require.False(t, cfg.Treasury.AutoMintEnabled())
	require.True(t, cfg.Treasury.AutoSweep)
	require.Equal(t, 2.5, cfg.Treasury.SweepThreshold)
	require.Equal(t, 0.0, *cfg.Treasury.ColdWallet)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "nexuscashd.toml", `
listen = "127.0.0.1:8000"
merchant_address = "bitcoincash:qmerchanttest"

[checkout]
expiry = "2m"
confirm_jitter = "0s"

[rate]
initial = 412.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8000", cfg.Listen)
	require.Equal(t, "bitcoincash:qmerchanttest", cfg.MerchantAddress)
	require.Equal(t, 2*time.Minute, cfg.Checkout.Expiry.Duration)
	require.Equal(t, DefaultConfirmJitter, cfg.Checkout.ConfirmJitter.Duration)
	require.Equal(t, 412.5, cfg.Rate.Initial)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("NEXUSCASH_ENV", "prod")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"merchant":    "merchant_address: \"ecash:qabc\"\n",
		"probability": "checkout:\n  confirm_probability: 1.5\n",
		"duration":    "checkout:\n  expiry: soon\n",
		"unknown key": "listen_addr: \":1\"\n",
		"rate":        "rate:\n  initial: -4\n",
		"webhook":     "webhook:\n  url: http://merchant.example/hooks\n",
	}
	for name, contents := range cases {
		_, err := Load(writeFile(t, "bad.yaml", contents))
		require.Error(t, err, name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nexuscashd.toml")
	cfg := Default()
	cfg.Checkout.Expiry.Duration = 45 * time.Second
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, loaded.Checkout.Expiry.Duration)
	require.Equal(t, cfg.MerchantAddress, loaded.MerchantAddress)
}

func TestWebhookConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.Webhook.Enabled())

	path := writeFile(t, "nexuscashd.toml", `
[webhook]
url = "http://merchant.example/hooks"
secret = "s3cret"
max_attempts = 3
`)
	cfg, err = Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Webhook.Enabled())
	require.Equal(t, 3, cfg.Webhook.MaxAttempts)
}
