package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"niftyfib/internal/backtest"
	"niftyfib/internal/logger"
	"niftyfib/internal/market"
	"niftyfib/internal/signal"
)

var log = logger.Tag("notify")

var (
	ErrNoRecipients = errors.New("no recipients configured")
	ErrNoBacktest   = errors.New("no backtest data")
)

// DispatchError 汇总单个收件人的投递失败，键为收件地址。
type DispatchError struct {
	Kind     string
	Total    int
	Failures map[string]error
}

func (e *DispatchError) Error() string {
	addrs := make([]string, 0, len(e.Failures))
	for addr := range e.Failures {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		parts = append(parts, fmt.Sprintf("%s: %v", addr, e.Failures[addr]))
	}
	return fmt.Sprintf("%s: %d/%d deliveries failed (%s)", e.Kind, len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// DispatcherConfig 配置 Dispatcher。
type DispatcherConfig struct {
	Mailer        Mailer
	Symbol        string
	SubjectPrefix string
	DashboardURL  string
	Location      *time.Location
}

// Dispatcher 为每个收件人单独构造一封邮件并交给 Mailer。
type Dispatcher struct {
	mailer        Mailer
	symbol        string
	subjectPrefix string
	dashboardURL  string
	loc           *time.Location
	nowFn         func() time.Time
}

func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Mailer == nil {
		return nil, errors.New("dispatcher 需要 mailer")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	symbol := strings.TrimSpace(cfg.Symbol)
	if symbol == "" {
		symbol = "NIFTY50"
	}
	return &Dispatcher{
		mailer:        cfg.Mailer,
		symbol:        symbol,
		subjectPrefix: cfg.SubjectPrefix,
		dashboardURL:  strings.TrimSpace(cfg.DashboardURL),
		loc:           loc,
		nowFn:         time.Now,
	}, nil
}

// SendLiveAlert 推送实时触发的买点、止损与第一目标。
func (d *Dispatcher) SendLiveAlert(ctx context.Context, recipients []string, rec signal.Record) error {
	body := d.liveAlertBody(rec, d.now())
	return d.dispatch(ctx, "live alert", recipients, d.subject(d.symbol), body)
}

// SendBacktestReport 推送回测统计与最近 5 次触发。run 为 nil 时返回 ErrNoBacktest。
func (d *Dispatcher) SendBacktestReport(ctx context.Context, recipients []string, run *backtest.Run) error {
	if run == nil || len(run.Records) == 0 {
		log.Warnf("没有回测数据，跳过报告发送")
		return ErrNoBacktest
	}
	body := d.reportBody(backtest.Summarize(run), d.now())
	return d.dispatch(ctx, "backtest report", recipients, d.subject("BACKTEST-REPORT"), body)
}

// SendTestAlert 用固定样例价位走一遍实时告警链路。
func (d *Dispatcher) SendTestAlert(ctx context.Context, recipients []string) error {
	body := d.liveAlertBody(SampleAlert(d.now().In(d.loc)), d.now())
	return d.dispatch(ctx, "test alert", recipients, d.subject("TEST-TRIGGER"), body)
}

// SampleAlert 是测试告警使用的样例记录。
func SampleAlert(day time.Time) signal.Record {
	return signal.Record{
		Date:       market.DateKey(day, day.Location()),
		Case1:      true,
		Acceptance: true,
		Trigger:    signal.TriggerFired,
		Buy50:      25850,
		StopLoss:   25750,
		Target1:    25950,
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		log.Warnf("%s: 没有收件人", kind)
		return ErrNoRecipients
	}
	msgs := make([]*Message, 0, len(recipients))
	for _, to := range recipients {
		msgs = append(msgs, &Message{To: to, Subject: subject, Body: body})
	}
	errs := d.mailer.Send(ctx, msgs)

	var failed *DispatchError
	for i, msg := range msgs {
		var err error
		if i < len(errs) {
			err = errs[i]
		} else {
			err = errors.New("mailer returned no result")
		}
		if err == nil {
			log.Infof("%s 已发送 → %s", kind, msg.To)
			continue
		}
		if failed == nil {
			failed = &DispatchError{Kind: kind, Total: len(msgs), Failures: make(map[string]error)}
		}
		failed.Failures[msg.To] = err
		log.Warnf("%s 发送失败 → %s: %v", kind, msg.To, err)
	}
	if failed != nil {
		return failed
	}
	log.Infof("%s 完成: %d 封", kind, len(msgs))
	return nil
}

func (d *Dispatcher) now() time.Time {
	return d.nowFn().In(d.loc)
}
