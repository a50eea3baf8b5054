package app

import (
	"fmt"
	"strings"
)

type StartupSummary struct {
	Env          string
	HTTPAddr     string
	Symbol       string
	Ticker       string
	Source       string
	Timezone     string
	Lookback     int
	CachePath    string
	HistoryPath  string
	Interval     string
	AutoStart    bool
	SMTPEnabled  bool
	Recipients   []string
	RecipientsFn string
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[行情 (MARKET DATA)]")
	fmt.Printf("  标的: %s (%s via %s)\n", s.Symbol, s.Ticker, s.Source)
	fmt.Printf("  时区: %s\n", orDash(s.Timezone))
	fmt.Printf("  回看: %d 个交易日\n", s.Lookback)
	fmt.Printf("  缓存: %s\n", orDash(s.CachePath))
	fmt.Println()

	fmt.Println("[回测与监控 (BACKTEST / MONITOR)]")
	fmt.Printf("  历史存储: %s\n", orDash(s.HistoryPath))
	fmt.Printf("  轮询周期: %s (自动启动: %v)\n", s.Interval, s.AutoStart)
	fmt.Println()

	fmt.Println("[通知 (NOTIFY)]")
	fmt.Printf("  SMTP: %v\n", s.SMTPEnabled)
	fmt.Printf("  收件人: %s\n", formatList(s.Recipients))
	if s.RecipientsFn != "" {
		fmt.Printf("  收件人文件: %s\n", s.RecipientsFn)
	}
	fmt.Println()

	fmt.Printf("[HTTP] %s (env=%s)\n", s.HTTPAddr, s.Env)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
