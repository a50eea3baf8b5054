package config

import "strings"

// 默认值常量
const (
	defaultAppEnv             = "dev"
	defaultAppLogLevel        = "info"
	defaultAppLogFormat       = "text"
	defaultAppHTTPAddr        = ":9000"
	defaultMarketSymbol       = "NIFTY50"
	defaultMarketTicker       = "^NSEI"
	defaultMarketBaseURL      = "https://query1.finance.yahoo.com"
	defaultMarketTimezone     = "Asia/Kolkata"
	defaultMarketLookback     = 25
	defaultMarketTimeout      = 15
	defaultMarketRetries      = 3
	defaultMarketRatePerMin   = 30
	defaultMarketBreakerFails = 5
	defaultMarketBreakerCool  = 300
	defaultBacktestMinBars    = 10
	defaultBacktestResults    = 20
	defaultBacktestHistory    = "data/niftyfib.db"
	defaultBacktestKeep       = 200
	defaultMonitorInterval    = "15m"
	defaultNotifyTimeout      = 30
	defaultNotifySMTPPort     = 587
	defaultNotifySMTPTLS      = "starttls"
	defaultNotifySubject      = "NIFTY50 FIBONACCI"
	defaultTasksMaxConcurrent = 4
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Monitor.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
	c.Tasks.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.symbol", &m.Symbol, defaultMarketSymbol),
		stringFieldDefault("market.ticker", &m.Ticker, defaultMarketTicker),
		stringFieldDefault("market.base_url", &m.BaseURL, defaultMarketBaseURL),
		stringFieldDefault("market.timezone", &m.Timezone, defaultMarketTimezone),
		intFieldDefault("market.lookback_days", &m.LookbackDays, defaultMarketLookback),
		intFieldDefault("market.timeout_seconds", &m.TimeoutSeconds, defaultMarketTimeout),
		intFieldDefault("market.rate_limit_per_min", &m.RateLimitPerMin, defaultMarketRatePerMin),
		intFieldDefault("market.retries", &m.Retries, defaultMarketRetries),
		intFieldDefault("market.breaker_threshold", &m.BreakerThreshold, defaultMarketBreakerFails),
		intFieldDefault("market.breaker_cooldown_seconds", &m.BreakerCooldownSeconds, defaultMarketBreakerCool),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("backtest.min_bars", &b.MinBars, defaultBacktestMinBars),
		intFieldDefault("backtest.results_limit", &b.ResultsLimit, defaultBacktestResults),
		stringFieldDefault("backtest.history_path", &b.HistoryPath, defaultBacktestHistory),
		intFieldDefault("backtest.history_keep", &b.HistoryKeep, defaultBacktestKeep),
	)
}

func (m *MonitorConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("monitor.interval", &m.Interval, defaultMonitorInterval),
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("notify.timeout_seconds", &n.TimeoutSeconds, defaultNotifyTimeout),
		intFieldDefault("notify.smtp.port", &n.SMTP.Port, defaultNotifySMTPPort),
		stringFieldDefault("notify.smtp.tls", &n.SMTP.TLS, defaultNotifySMTPTLS),
		stringFieldDefault("notify.subject_prefix", &n.SubjectPrefix, defaultNotifySubject),
	)
	n.Recipients = normalizeRecipients(n.Recipients)
	n.SMTP.TLS = strings.ToLower(strings.TrimSpace(n.SMTP.TLS))
}

func (t *TasksConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("tasks.max_concurrent", &t.MaxConcurrent, defaultTasksMaxConcurrent),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// normalizeRecipients 去除空白与重复地址（大小写不敏感），保持原有顺序。
func normalizeRecipients(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, addr := range list {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
