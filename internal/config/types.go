package config

import (
	"strings"
	"time"
)

// Config 是 niftyfib 的主配置载体。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Market   MarketConfig   `yaml:"market"`
	Backtest BacktestConfig `yaml:"backtest"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Notify   NotifyConfig   `yaml:"notify"`
	Tasks    TasksConfig    `yaml:"tasks"`
}

type AppConfig struct {
	Env       string `yaml:"env"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	HTTPAddr  string `yaml:"http_addr"`
	LogPath   string `yaml:"log_path"`
}

// MarketConfig 描述日线数据源。Symbol 是对外展示名，Ticker 是上游代码。
type MarketConfig struct {
	Symbol          string `yaml:"symbol"`
	Ticker          string `yaml:"ticker"`
	BaseURL         string `yaml:"base_url"`
	Timezone        string `yaml:"timezone"`
	LookbackDays    int    `yaml:"lookback_days"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	Retries         int    `yaml:"retries"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	CachePath       string `yaml:"cache_path"`

	// 连续失败 BreakerThreshold 次后暂停访问上游 BreakerCooldownSeconds 秒。
	BreakerThreshold       int `yaml:"breaker_threshold"`
	BreakerCooldownSeconds int `yaml:"breaker_cooldown_seconds"`
}

func (m MarketConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

func (m MarketConfig) BreakerCooldown() time.Duration {
	return time.Duration(m.BreakerCooldownSeconds) * time.Second
}

// Location 解析交易所时区，失败时退回 UTC。
func (m MarketConfig) Location() *time.Location {
	name := strings.TrimSpace(m.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type BacktestConfig struct {
	MinBars      int    `yaml:"min_bars"`
	ResultsLimit int    `yaml:"results_limit"`
	HistoryPath  string `yaml:"history_path"`
	HistoryKeep  int    `yaml:"history_keep"`
}

// MonitorConfig 控制实时监控的轮询节奏。
type MonitorConfig struct {
	Interval  string `yaml:"interval"`
	AutoStart bool   `yaml:"auto_start"`
}

type NotifyConfig struct {
	SMTP           SMTPConfig `yaml:"smtp"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Recipients     []string   `yaml:"recipients"`
	RecipientsFile string     `yaml:"recipients_file"`
	DashboardURL   string     `yaml:"dashboard_url"`
	SubjectPrefix  string     `yaml:"subject_prefix"`
}

func (n NotifyConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// TLS: "starttls"（默认）、"ssl" 或 "none"
	TLS string `yaml:"tls"`
}

func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.From) != ""
}

type TasksConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
