package market

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"niftyfib/internal/pkg/circuit"
)

const (
	// DefaultLookback 与看板一致：最近 25 个交易日。
	DefaultLookback = 25
	// MinLookback 至少需要今天与昨天两根。
	MinLookback = 2
)

// FeedConfig 配置 Feed。
type FeedConfig struct {
	Source   Source
	Cache    BarCache
	Location *time.Location
	// Tickers 把展示名映射到上游代码，例如 NIFTY50 -> ^NSEI。
	Tickers map[string]string
	Timeout time.Duration
	// Breaker 可选：上游连续失败后暂停访问，直接读缓存。
	Breaker *circuit.Breaker
}

// Feed 是对外的日线入口：归一化时区、剔除坏行、去重、排序并截断。
type Feed struct {
	source  Source
	cache   BarCache
	loc     *time.Location
	tickers map[string]string
	timeout time.Duration
	breaker *circuit.Breaker
}

func NewFeed(cfg FeedConfig) (*Feed, error) {
	if cfg.Source == nil {
		return nil, errors.New("feed 需要数据源")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	tickers := make(map[string]string, len(cfg.Tickers))
	for k, v := range cfg.Tickers {
		tickers[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &Feed{
		source:  cfg.Source,
		cache:   cfg.Cache,
		loc:     loc,
		tickers: tickers,
		timeout: cfg.Timeout,
		breaker: cfg.Breaker,
	}, nil
}

// Ticker 返回 symbol 对应的上游代码；未配置映射时原样返回。
func (f *Feed) Ticker(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if t, ok := f.tickers[strings.ToUpper(symbol)]; ok && t != "" {
		return t
	}
	return symbol
}

// FetchRecent 返回最多 lookback 根日线，按日期升序（最新在末尾）。
// 上游出错或返回空时不报错，返回空切片（配置了缓存则退回缓存数据）；
// 调用方应把过短的序列视为"数据不足"。
func (f *Feed) FetchRecent(ctx context.Context, symbol string, lookback int) []Bar {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if lookback < MinLookback {
		lookback = MinLookback
	}
	ticker := f.Ticker(symbol)
	if ticker == "" {
		log.Warnf("symbol 为空，跳过拉取")
		return nil
	}
	if !f.breaker.Allow() {
		log.Warnf("%s 熔断中，跳过上游拉取 %s", f.source.Name(), ticker)
		return f.fromCache(ctx, ticker, lookback)
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	raw, err := f.source.FetchDaily(ctx, ticker, calendarDays(lookback))
	if err != nil {
		log.Warnf("%s 拉取 %s 失败: %v", f.source.Name(), ticker, err)
		f.breaker.RecordFailure()
		return f.fromCache(ctx, ticker, lookback)
	}
	bars := Normalize(raw, f.loc, lookback)
	if len(bars) == 0 {
		log.Warnf("%s 拉取 %s 结果为空", f.source.Name(), ticker)
		f.breaker.RecordFailure()
		return f.fromCache(ctx, ticker, lookback)
	}
	f.breaker.RecordSuccess()
	if f.cache != nil {
		if err := f.cache.Upsert(ctx, ticker, bars); err != nil {
			log.Warnf("写入日线缓存失败 %s: %v", ticker, err)
		}
	}
	last := bars[len(bars)-1]
	log.Infof("%s 最近 %d 根 | 最新=%s", ticker, len(bars), last.DateString())
	return bars
}

func (f *Feed) fromCache(ctx context.Context, ticker string, lookback int) []Bar {
	if f.cache == nil {
		return nil
	}
	// 上游的 ctx 可能已超时，缓存读取单独给一个短超时。
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	bars, err := f.cache.Recent(cctx, ticker, lookback)
	if err != nil {
		log.Warnf("读取日线缓存失败 %s: %v", ticker, err)
		return nil
	}
	if len(bars) > 0 {
		log.Warnf("%s 使用缓存日线 %d 根（最新=%s）", ticker, len(bars), bars[len(bars)-1].DateString())
	}
	return bars
}

// Normalize 对原始行做时区归一、坏行剔除、按日期去重（后出现者覆盖）、
// 升序排序并保留最近 lookback 根。
func Normalize(raw []RawBar, loc *time.Location, lookback int) []Bar {
	byDate := make(map[time.Time]Bar, len(raw))
	for _, r := range raw {
		bar, err := r.Resolve(loc)
		if err != nil {
			log.Warnf("跳过日线: %v", err)
			continue
		}
		byDate[bar.Date] = bar
	}
	out := make([]Bar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if lookback > 0 && len(out) > lookback {
		out = out[len(out)-lookback:]
	}
	return out
}

// calendarDays 估算覆盖 n 个交易日所需的自然日（周末与节假日留余量）。
func calendarDays(tradingDays int) int {
	return tradingDays*7/5 + 10
}
