package config

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"niftyfib/internal/scheduler"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Monitor.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if c.Tasks.MaxConcurrent <= 0 {
		return fmt.Errorf("tasks.max_concurrent must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.Ticker) == "" {
		return fmt.Errorf("market.ticker cannot be empty")
	}
	if strings.TrimSpace(m.BaseURL) == "" {
		return fmt.Errorf("market.base_url cannot be empty")
	}
	if m.LookbackDays < 2 {
		return fmt.Errorf("market.lookback_days must be >= 2, got %d", m.LookbackDays)
	}
	if m.Retries < 0 {
		return fmt.Errorf("market.retries must be >= 0")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(m.Timezone)); err != nil {
		return fmt.Errorf("market.timezone invalid (%s): %w", m.Timezone, err)
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.MinBars < 2 {
		return fmt.Errorf("backtest.min_bars must be >= 2, got %d", b.MinBars)
	}
	if b.ResultsLimit <= 0 {
		return fmt.Errorf("backtest.results_limit must be > 0")
	}
	if b.HistoryKeep < 0 {
		return fmt.Errorf("backtest.history_keep must be >= 0")
	}
	return nil
}

func (m *MonitorConfig) validate() error {
	if _, ok := scheduler.ParseIntervalDuration(m.Interval); !ok {
		return fmt.Errorf("monitor.interval invalid: %q", m.Interval)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	for _, addr := range n.Recipients {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("notify.recipients contains invalid address %q: %w", addr, err)
		}
	}
	if strings.TrimSpace(n.SMTP.From) != "" {
		if _, err := mail.ParseAddress(n.SMTP.From); err != nil {
			return fmt.Errorf("notify.smtp.from invalid %q: %w", n.SMTP.From, err)
		}
	}
	switch n.SMTP.TLS {
	case "", "starttls", "ssl", "none":
	default:
		return fmt.Errorf("notify.smtp.tls only supports starttls/ssl/none, got %s", n.SMTP.TLS)
	}
	if n.SMTP.Port < 0 || n.SMTP.Port > 65535 {
		return fmt.Errorf("notify.smtp.port out of range: %d", n.SMTP.Port)
	}
	return nil
}
