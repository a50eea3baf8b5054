package model

import (
	"gorm.io/datatypes"
)

// BacktestRunModel 保存一次完整回测；Records 为展示形态的记录数组（最新在前）。
type BacktestRunModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;index:idx_runs_symbol_completed,priority:1"`
	StartedAt     int64          `gorm:"column:started_at"`
	CompletedAt   int64          `gorm:"column:completed_at;index:idx_runs_symbol_completed,priority:2"`
	PeriodStart   string         `gorm:"column:period_start"`
	PeriodEnd     string         `gorm:"column:period_end"`
	TotalDays     int            `gorm:"column:total_days"`
	Triggers      int            `gorm:"column:triggers"`
	HitRate       float64        `gorm:"column:hit_rate"`
	Records       datatypes.JSON `gorm:"column:records_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (BacktestRunModel) TableName() string { return "backtest_runs" }

// AlertModel 记录实时监控已推送的触发日，(symbol, day) 唯一，用于去重。
type AlertModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;uniqueIndex:idx_alert_symbol_day,priority:1"`
	Day           string         `gorm:"column:day;uniqueIndex:idx_alert_symbol_day,priority:2"`
	Buy50         float64        `gorm:"column:buy_50"`
	StopLoss      float64        `gorm:"column:stop_loss"`
	Target1       float64        `gorm:"column:target1"`
	Delivered     bool           `gorm:"column:delivered"`
	Detail        datatypes.JSON `gorm:"column:detail_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
}

func (AlertModel) TableName() string { return "live_alerts" }
