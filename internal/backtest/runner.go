package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"niftyfib/internal/logger"
	"niftyfib/internal/market"
	"niftyfib/internal/signal"
	"niftyfib/internal/store"

	"github.com/google/uuid"
)

var log = logger.Tag("backtest")

const (
	DefaultMinBars      = 10
	DefaultResultsLimit = 20
)

// BarFeed 提供升序日线；出错时返回空切片而非 error。
type BarFeed interface {
	FetchRecent(ctx context.Context, symbol string, lookback int) []market.Bar
}

// RunnerConfig 配置 Runner。
type RunnerConfig struct {
	Feed     BarFeed
	Symbol   string
	Lookback int
	MinBars  int
	// History 可选，为 nil 时不持久化。
	History     store.RunRepository
	HistoryKeep int
}

// Runner 对最近的日线做逐日分类。同一时刻只允许一个回测执行，
// 新结果在整段分类完成后一次性替换旧结果，读者不会看到半成品。
type Runner struct {
	feed        BarFeed
	symbol      string
	lookback    int
	minBars     int
	history     store.RunRepository
	historyKeep int

	running atomic.Bool

	mu          sync.RWMutex
	current     *Run
	lastMessage string

	nowFn func() time.Time
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Feed == nil {
		return nil, errors.New("backtest runner 需要日线数据源")
	}
	symbol := strings.TrimSpace(cfg.Symbol)
	if symbol == "" {
		return nil, errors.New("backtest runner 需要 symbol")
	}
	minBars := cfg.MinBars
	if minBars <= 0 {
		minBars = DefaultMinBars
	}
	if minBars < market.MinLookback {
		minBars = market.MinLookback
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = market.DefaultLookback
	}
	if lookback < minBars {
		lookback = minBars
	}
	return &Runner{
		feed:        cfg.Feed,
		symbol:      symbol,
		lookback:    lookback,
		minBars:     minBars,
		history:     cfg.History,
		historyKeep: cfg.HistoryKeep,
		nowFn:       time.Now,
	}, nil
}

func (r *Runner) Symbol() string { return r.symbol }

// Run 拉取日线并完成一次回测。已有回测在跑时立即返回 ErrRunInProgress；
// 数据不足时返回 ErrInsufficientData，且保留上一次结果。
func (r *Runner) Run(ctx context.Context) (*Run, error) {
	if !r.running.CompareAndSwap(false, true) {
		log.Warnf("%s 回测进行中，忽略本次请求", r.symbol)
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	started := r.nowFn()
	log.Infof("%s 回测开始 lookback=%d", r.symbol, r.lookback)
	bars := r.feed.FetchRecent(ctx, r.symbol, r.lookback)
	if len(bars) < r.minBars {
		err := fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(bars), r.minBars)
		r.setMessage(fmt.Sprintf("insufficient data: %d bars", len(bars)))
		log.Warnf("%s 回测中止: %v", r.symbol, err)
		return nil, err
	}

	run := &Run{
		ID:          uuid.NewString(),
		Symbol:      r.symbol,
		Records:     signal.ClassifySeries(bars),
		StartedAt:   started,
		CompletedAt: r.nowFn(),
	}

	r.mu.Lock()
	r.current = run
	r.lastMessage = fmt.Sprintf("completed: %d days", len(run.Records))
	r.mu.Unlock()

	sum := Summarize(run)
	log.Infof("%s 回测完成 id=%s days=%d triggers=%d hit=%.1f%%",
		r.symbol, run.ID, sum.TotalDays, sum.Triggers, sum.HitRate)

	if err := r.persist(ctx, run, sum); err != nil {
		log.Warnf("%s 回测结果写入历史失败: %v", r.symbol, err)
	}
	return run, nil
}

// Results 返回当前结果的前 limit 条（最新在前）；limit<=0 时取默认 20。
func (r *Runner) Results(limit int) []signal.Record {
	if limit <= 0 {
		limit = DefaultResultsLimit
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return []signal.Record{}
	}
	n := len(r.current.Records)
	if limit < n {
		n = limit
	}
	out := make([]signal.Record, n)
	copy(out, r.current.Records[:n])
	return out
}

// Current 返回最近一次成功的回测，没有时为 nil。
func (r *Runner) Current() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Status{
		Running: r.running.Load(),
		Message: r.lastMessage,
	}
	if r.current != nil {
		st.LastRunID = r.current.ID
		st.Records = len(r.current.Records)
		completed := r.current.CompletedAt
		st.CompletedAt = &completed
	}
	return st
}

func (r *Runner) setMessage(msg string) {
	r.mu.Lock()
	r.lastMessage = msg
	r.mu.Unlock()
}
