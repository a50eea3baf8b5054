package app

import (
	"context"
	"fmt"
	"strings"

	"niftyfib/internal/backtest"
	"niftyfib/internal/config"
	"niftyfib/internal/logger"
	"niftyfib/internal/monitor"
	"niftyfib/internal/notifier"
	"niftyfib/internal/store/gormstore"
	"niftyfib/internal/tasks"
	apihttp "niftyfib/internal/transport/http/api"
)

type AppBuilder struct {
	cfg *config.Config

	marketStackFn func(context.Context, config.MarketConfig) (*MarketStack, error)
	mailerFn      func(config.NotifyConfig) notifier.Mailer
	storeFn       func(path string) (*gormstore.GormStore, error)
}

type AppBuilderOption func(*AppBuilder)

// WithMarketStack 替换行情栈构建函数（测试用）。
func WithMarketStack(fn func(context.Context, config.MarketConfig) (*MarketStack, error)) AppBuilderOption {
	return func(b *AppBuilder) { b.marketStackFn = fn }
}

// WithMailer 替换邮件发送器（测试用）。
func WithMailer(fn func(config.NotifyConfig) notifier.Mailer) AppBuilderOption {
	return func(b *AppBuilder) { b.mailerFn = fn }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:           cfg,
		marketStackFn: buildMarketStack,
		mailerFn:      buildMailer,
		storeFn:       gormstore.NewGormStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	marketStack, err := b.marketStackFn(ctx, cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	if marketStack.Close != nil {
		a.closers = append(a.closers, marketStack.Close)
	}

	var db *gormstore.GormStore
	if path := strings.TrimSpace(cfg.Backtest.HistoryPath); path != "" {
		db, err = b.storeFn(path)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		logger.Infof("✓ 历史存储: %s", path)
	}

	runnerCfg := backtest.RunnerConfig{
		Feed:        marketStack.Feed,
		Symbol:      cfg.Market.Symbol,
		Lookback:    cfg.Market.LookbackDays,
		MinBars:     cfg.Backtest.MinBars,
		HistoryKeep: cfg.Backtest.HistoryKeep,
	}
	if db != nil {
		runnerCfg.History = db
	}
	a.runner, err = backtest.NewRunner(runnerCfg)
	if err != nil {
		return nil, err
	}

	a.recipients, err = notifier.NewRegistry(cfg.Notify.Recipients, cfg.Notify.RecipientsFile)
	if err != nil {
		return nil, fmt.Errorf("recipients: %w", err)
	}
	a.dispatcher, err = notifier.NewDispatcher(notifier.DispatcherConfig{
		Mailer:        b.mailerFn(cfg.Notify),
		Symbol:        cfg.Market.Symbol,
		SubjectPrefix: cfg.Notify.SubjectPrefix,
		DashboardURL:  cfg.Notify.DashboardURL,
		Location:      cfg.Market.Location(),
	})
	if err != nil {
		return nil, err
	}

	monCfg := monitor.Config{
		Feed:       marketStack.Feed,
		Alerter:    a.dispatcher,
		Recipients: a.recipients,
		Symbol:     cfg.Market.Symbol,
	}
	if db != nil {
		monCfg.Memo = db
	}
	a.monitor, err = monitor.New(monCfg)
	if err != nil {
		return nil, err
	}

	a.tasks = tasks.NewPool(ctx, cfg.Tasks.MaxConcurrent)
	a.http, err = apihttp.NewServer(apihttp.Config{
		Addr:       cfg.App.HTTPAddr,
		Runner:     a.runner,
		Dispatcher: a.dispatcher,
		Monitor:    a.monitor,
		Recipients: a.recipients,
		Tasks:      a.tasks,
	})
	if err != nil {
		return nil, err
	}

	a.Summary = &StartupSummary{
		Env:          cfg.App.Env,
		HTTPAddr:     cfg.App.HTTPAddr,
		Symbol:       cfg.Market.Symbol,
		Ticker:       cfg.Market.Ticker,
		Source:       marketStack.SourceName,
		Timezone:     cfg.Market.Timezone,
		Lookback:     cfg.Market.LookbackDays,
		CachePath:    cfg.Market.CachePath,
		HistoryPath:  cfg.Backtest.HistoryPath,
		Interval:     cfg.Monitor.Interval,
		AutoStart:    cfg.Monitor.AutoStart,
		SMTPEnabled:  cfg.Notify.SMTP.Enabled(),
		Recipients:   a.recipients.List(),
		RecipientsFn: cfg.Notify.RecipientsFile,
	}
	return a, nil
}

func buildMailer(cfg config.NotifyConfig) notifier.Mailer {
	if !cfg.SMTP.Enabled() {
		logger.Warnf("SMTP 未配置，邮件发送将全部失败")
	}
	return notifier.NewSMTPMailer(notifier.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		TLS:      cfg.SMTP.TLS,
		Timeout:  cfg.Timeout(),
	})
}
