package store

import (
	"context"
	"errors"

	"niftyfib/internal/store/model"
)

// ErrNotFound 在按 ID 查询不到记录时返回。
var ErrNotFound = errors.New("record not found")

// RunRepository 保存回测历史。
type RunRepository interface {
	SaveRun(ctx context.Context, run *model.BacktestRunModel) error
	GetRun(ctx context.Context, id string) (*model.BacktestRunModel, error)
	ListRuns(ctx context.Context, symbol string, limit int) ([]model.BacktestRunModel, error)
	PruneRuns(ctx context.Context, symbol string, keep int) (int64, error)
}

// AlertRepository 保存实时告警，按 (symbol, day) 去重。
type AlertRepository interface {
	// RecordAlert 返回 false 表示该日已存在记录。
	RecordAlert(ctx context.Context, alert *model.AlertModel) (bool, error)
	MarkDelivered(ctx context.Context, symbol, day string, delivered bool) error
	AlertedDays(ctx context.Context, symbol string, limit int) ([]string, error)
}
