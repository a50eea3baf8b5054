package apihttp

import (
	"context"

	"niftyfib/internal/backtest"
	"niftyfib/internal/monitor"
	"niftyfib/internal/signal"
)

// BacktestRunner 是 HTTP 层使用的回测能力。
type BacktestRunner interface {
	Run(ctx context.Context) (*backtest.Run, error)
	Results(limit int) []signal.Record
	Current() *backtest.Run
	Status() backtest.Status
	History(ctx context.Context, limit int) ([]backtest.HistoryEntry, error)
	HistoryRun(ctx context.Context, id string) (*backtest.HistoryEntry, error)
}

type Dispatcher interface {
	SendBacktestReport(ctx context.Context, recipients []string, run *backtest.Run) error
	SendTestAlert(ctx context.Context, recipients []string) error
}

type LiveMonitor interface {
	Start()
	Stop()
	Active() bool
	Tick(ctx context.Context) (monitor.TickResult, error)
	Status() monitor.Status
}

type Recipients interface {
	List() []string
}

// TaskRunner 异步执行后台任务，handler 不等待其完成。
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error) bool
}
