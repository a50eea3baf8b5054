package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "NIFTY50", cfg.Market.Symbol)
	assert.Equal(t, "^NSEI", cfg.Market.Ticker)
	assert.Equal(t, 25, cfg.Market.LookbackDays)
	assert.Equal(t, 15*time.Second, cfg.Market.Timeout())
	assert.Equal(t, 10, cfg.Backtest.MinBars)
	assert.Equal(t, 20, cfg.Backtest.ResultsLimit)
	assert.Equal(t, "15m", cfg.Monitor.Interval)
	assert.Equal(t, 587, cfg.Notify.SMTP.Port)
	assert.Equal(t, "starttls", cfg.Notify.SMTP.TLS)
	assert.Equal(t, 4, cfg.Tasks.MaxConcurrent)
	assert.NoError(t, validate(cfg))
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  log_level: debug
market:
  lookback_days: 40
  cache_path: ""
backtest:
  history_path: ""
monitor:
  interval: 5m
  auto_start: true
notify:
  recipients:
    - " a@example.com "
    - A@example.com
    - b@example.com
  smtp:
    host: smtp.example.com
    from: alerts@example.com
    tls: SSL
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, 40, cfg.Market.LookbackDays)
	assert.Equal(t, "", cfg.Market.CachePath)
	assert.Equal(t, "", cfg.Backtest.HistoryPath)
	assert.Equal(t, "5m", cfg.Monitor.Interval)
	assert.True(t, cfg.Monitor.AutoStart)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Recipients)
	assert.Equal(t, "ssl", cfg.Notify.SMTP.TLS)
	assert.True(t, cfg.Notify.SMTP.Enabled())
}

func TestLoad_Includes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
market:
  symbol: BANKNIFTY
  ticker: "^NSEBANK"
monitor:
  interval: 1h
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
monitor:
  interval: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "BANKNIFTY", cfg.Market.Symbol)
	assert.Equal(t, "^NSEBANK", cfg.Market.Ticker)
	assert.Equal(t, "30m", cfg.Monitor.Interval)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
notify:
  smtp:
    host: smtp.example.com
    from: alerts@example.com
`)
	t.Setenv("NIFTYFIB_NOTIFY_SMTP_PASSWORD", "s3cret")
	t.Setenv("NIFTYFIB_NOTIFY_SMTP_USERNAME", "alerts@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Notify.SMTP.Password)
	assert.Equal(t, "alerts@example.com", cfg.Notify.SMTP.Username)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"interval":  "monitor:\n  interval: soon\n",
		"timezone":  "market:\n  timezone: Mars/Olympus\n",
		"recipient": "notify:\n  recipients: [not-an-address]\n",
		"tls":       "notify:\n  smtp:\n    tls: maybe\n",
		"min_bars":  "backtest:\n  min_bars: 1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "NIFTY50", cfg.Market.Symbol)
	assert.Equal(t, "smtp.gmail.com", cfg.Notify.SMTP.Host)
	assert.Equal(t, "starttls", cfg.Notify.SMTP.TLS)
	assert.Equal(t, "configs/recipients.yaml", cfg.Notify.RecipientsFile)
	assert.Equal(t, "http://localhost:9000", cfg.Notify.DashboardURL)
}

func TestLoad_SingleIncludeAndExplicitEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notify.yaml", "notify:\n  subject_prefix: ALERT\n  smtp:\n    port: 2525\n")
	path := writeFile(t, dir, "config.yaml", `
include: notify.yaml
market:
  cache_path: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ALERT", cfg.Notify.SubjectPrefix)
	assert.Equal(t, 2525, cfg.Notify.SMTP.Port)
	assert.Equal(t, "", cfg.Market.CachePath)
	assert.Equal(t, "NIFTY50", cfg.Market.Symbol)
}

func TestLoad_IncludeMustBeStrings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "include: [1, 2]\n")
	_, err := Load(path)
	assert.Error(t, err)
}
