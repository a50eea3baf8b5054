package app

import (
	"context"
	"errors"
	"fmt"

	"niftyfib/internal/backtest"
	"niftyfib/internal/config"
	"niftyfib/internal/logger"
	"niftyfib/internal/monitor"
	"niftyfib/internal/notifier"
	"niftyfib/internal/scheduler"
	"niftyfib/internal/tasks"
	apihttp "niftyfib/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与监控轮询。
type App struct {
	cfg        *config.Config
	runner     *backtest.Runner
	dispatcher *notifier.Dispatcher
	recipients *notifier.Registry
	monitor    *monitor.Monitor
	tasks      *tasks.Pool
	http       *apihttp.Server
	closers    []func() error
	Summary    *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg).Build(ctx)
}

// Run 启动 HTTP 服务与监控轮询，阻塞直到 ctx 结束或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	interval, ok := scheduler.ParseIntervalDuration(a.cfg.Monitor.Interval)
	if !ok {
		return fmt.Errorf("monitor interval invalid: %q", a.cfg.Monitor.Interval)
	}
	a.recipients.Watch()
	if a.cfg.Monitor.AutoStart {
		a.monitor.Start()
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		a.monitor.Loop(ctx, interval)
		return nil
	})
	err := group.Wait()

	a.tasks.Close()
	a.tasks.Wait()
	logger.Infof("✓ 已退出")
	return err
}

// Close 释放数据库等资源，可重复调用。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) Runner() *backtest.Runner { return a.runner }

func (a *App) Monitor() *monitor.Monitor { return a.monitor }

func (a *App) HTTP() *apihttp.Server { return a.http }
