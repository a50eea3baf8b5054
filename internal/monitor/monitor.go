package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"niftyfib/internal/logger"
	"niftyfib/internal/market"
	"niftyfib/internal/signal"
	"niftyfib/internal/store"
	"niftyfib/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var log = logger.Tag("monitor")

// ErrNoData 表示最近不足两根日线，本轮不做判断。
var ErrNoData = errors.New("monitor: fewer than two recent bars")

// memoDayLayout 用于持久化的日期键，可按字典序排序。
const memoDayLayout = "2006-01-02"

// seedDays 是启动时从告警记录里恢复的天数。
const seedDays = 30

type BarFeed interface {
	FetchRecent(ctx context.Context, symbol string, lookback int) []market.Bar
}

type Alerter interface {
	SendLiveAlert(ctx context.Context, recipients []string, rec signal.Record) error
}

type RecipientSource interface {
	List() []string
}

// Config 配置 Monitor。Memo 可选，为 nil 时去重只在进程内有效。
type Config struct {
	Feed       BarFeed
	Alerter    Alerter
	Recipients RecipientSource
	Memo       store.AlertRepository
	Symbol     string
}

// TickResult 描述一次轮询的结果。
type TickResult struct {
	Skipped   bool      `json:"skipped"`
	Date      string    `json:"date,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Alerted   bool      `json:"alerted"`
	Duplicate bool      `json:"duplicate"`
	At        time.Time `json:"at"`
}

// Status 供 /api/monitor/status 展示。
type Status struct {
	Active   bool        `json:"active"`
	Symbol   string      `json:"symbol"`
	LastTick *TickResult `json:"last_tick,omitempty"`
}

// Monitor 是可开关的实时监控：STOPPED 时 Tick 为空操作；ACTIVE 时
// 对最近两根日线分类，同一日期的 TRIGGER 只告警一次。
type Monitor struct {
	feed       BarFeed
	alerter    Alerter
	recipients RecipientSource
	memo       store.AlertRepository
	symbol     string

	active atomic.Bool

	// mu 串行化 Tick，保护 observed 与 seeded。
	mu       sync.Mutex
	observed map[time.Time]signal.Trigger
	seeded   bool

	lastTick atomic.Pointer[TickResult]

	nowFn func() time.Time
}

func New(cfg Config) (*Monitor, error) {
	if cfg.Feed == nil {
		return nil, errors.New("monitor 需要日线数据源")
	}
	if cfg.Alerter == nil {
		return nil, errors.New("monitor 需要告警发送器")
	}
	symbol := strings.TrimSpace(cfg.Symbol)
	if symbol == "" {
		return nil, errors.New("monitor 需要 symbol")
	}
	return &Monitor{
		feed:       cfg.Feed,
		alerter:    cfg.Alerter,
		recipients: cfg.Recipients,
		memo:       cfg.Memo,
		symbol:     symbol,
		observed:   make(map[time.Time]signal.Trigger),
		nowFn:      time.Now,
	}, nil
}

// Start 进入 ACTIVE，重复调用无副作用。
func (m *Monitor) Start() {
	if m.active.CompareAndSwap(false, true) {
		log.Infof("%s 实时监控已启动", m.symbol)
	}
}

// Stop 进入 STOPPED，重复调用无副作用。
func (m *Monitor) Stop() {
	if m.active.CompareAndSwap(true, false) {
		log.Infof("%s 实时监控已停止", m.symbol)
	}
}

func (m *Monitor) Active() bool { return m.active.Load() }

func (m *Monitor) Status() Status {
	st := Status{Active: m.Active(), Symbol: m.symbol}
	if last := m.lastTick.Load(); last != nil {
		cp := *last
		st.LastTick = &cp
	}
	return st
}

// Tick 执行一次评估。当日首次由 NO TRADE（或未知）变为 TRIGGER 时告警；
// 返回的 error 只用于记录，不影响后续轮询。
func (m *Monitor) Tick(ctx context.Context) (TickResult, error) {
	res := TickResult{At: m.nowFn()}
	if !m.Active() {
		res.Skipped = true
		return res, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(ctx)

	bars := m.feed.FetchRecent(ctx, m.symbol, market.MinLookback)
	if len(bars) < market.MinLookback {
		log.Warnf("%s 最近日线不足两根，跳过本轮", m.symbol)
		m.remember(res)
		return res, ErrNoData
	}
	rec := signal.Classify(bars[len(bars)-1], bars[len(bars)-2])
	res.Date = rec.Date.Format(market.DateLayout)
	res.Trigger = rec.Trigger.String()

	prev, seen := m.observed[rec.Date]
	if prev != signal.TriggerFired {
		m.observed[rec.Date] = rec.Trigger
	}
	m.prune(rec.Date)

	if !rec.IsTrigger() {
		if rec.Degenerate() {
			log.Debugf("%s %s 开盘 %.2f 未高于昨日低点 %.2f，无回撤结构", m.symbol, res.Date, rec.TodayOpen, rec.YestLow)
		} else {
			log.Debugf("%s %s %s", m.symbol, res.Date, res.Trigger)
		}
		m.remember(res)
		return res, nil
	}
	if seen && prev == signal.TriggerFired {
		res.Duplicate = true
		m.remember(res)
		return res, nil
	}

	if m.memo != nil {
		inserted, err := m.memo.RecordAlert(ctx, m.alertModel(rec))
		if err != nil {
			log.Warnf("%s 写入告警记录失败: %v", m.symbol, err)
		} else if !inserted {
			res.Duplicate = true
			m.remember(res)
			return res, nil
		}
	}

	var recipients []string
	if m.recipients != nil {
		recipients = m.recipients.List()
	}
	lv := rec.Levels()
	log.Infof("%s %s 触发: buy 61.8/50/38.2=%s/%s/%s sl=%s t1=%s", m.symbol, res.Date,
		signal.Fixed(lv.L618, 4), signal.Fixed(lv.L50, 3), signal.Fixed(lv.L382, 4),
		signal.Fixed(rec.StopLoss, 2), signal.Fixed(rec.Target1, 4))
	err := m.alerter.SendLiveAlert(ctx, recipients, rec)
	res.Alerted = true
	if m.memo != nil {
		if merr := m.memo.MarkDelivered(ctx, m.symbol, rec.Date.Format(memoDayLayout), err == nil); merr != nil {
			log.Warnf("%s 更新告警投递状态失败: %v", m.symbol, merr)
		}
	}
	m.remember(res)
	if err != nil {
		log.Warnf("%s 告警发送未全部成功: %v", m.symbol, err)
		return res, err
	}
	return res, nil
}

// seed 从告警记录恢复已告警的日期，重启后不再重复告警。
func (m *Monitor) seed(ctx context.Context) {
	if m.seeded || m.memo == nil {
		return
	}
	days, err := m.memo.AlertedDays(ctx, m.symbol, seedDays)
	if err != nil {
		log.Warnf("%s 读取告警记录失败: %v", m.symbol, err)
		return
	}
	for _, day := range days {
		t, err := time.Parse(memoDayLayout, day)
		if err != nil {
			continue
		}
		m.observed[t] = signal.TriggerFired
	}
	m.seeded = true
	if len(days) > 0 {
		log.Infof("%s 恢复已告警日期 %d 个", m.symbol, len(days))
	}
}

func (m *Monitor) prune(latest time.Time) {
	cutoff := latest.AddDate(0, 0, -seedDays)
	for day := range m.observed {
		if day.Before(cutoff) {
			delete(m.observed, day)
		}
	}
}

func (m *Monitor) remember(res TickResult) {
	m.lastTick.Store(&res)
}

func (m *Monitor) alertModel(rec signal.Record) *model.AlertModel {
	detail, err := json.Marshal(rec.View())
	if err != nil {
		detail = nil
	}
	return &model.AlertModel{
		ID:       uuid.NewString(),
		Symbol:   m.symbol,
		Day:      rec.Date.Format(memoDayLayout),
		Buy50:    rec.Buy50,
		StopLoss: rec.StopLoss,
		Target1:  rec.Target1,
		Detail:   datatypes.JSON(detail),
	}
}
