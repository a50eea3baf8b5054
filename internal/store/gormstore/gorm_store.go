package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"niftyfib/internal/store"
	"niftyfib/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// GormStore implements run history and alert storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var (
	_ store.RunRepository   = (*GormStore)(nil)
	_ store.AlertRepository = (*GormStore)(nil)
)

// NewGormStore opens (or creates) the sqlite file at path and migrates tables.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	// 使用纯 Go 的 modernc 驱动（注册名 "sqlite"），DSN 中的 _pragma 参数由它解析。
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.BacktestRunModel{}, &model.AlertModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------- Backtest runs -------------------------

func (s *GormStore) SaveRun(ctx context.Context, run *model.BacktestRunModel) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	if run == nil || strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id 必填")
	}
	if run.CreatedAtUnix == 0 {
		run.CreatedAtUnix = time.Now().UnixMilli()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(run).Error
}

func (s *GormStore) GetRun(ctx context.Context, id string) (*model.BacktestRunModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	var m model.BacktestRunModel
	err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListRuns 按完成时间倒序返回；列表不携带 records_json 以减小负载。
func (s *GormStore) ListRuns(ctx context.Context, symbol string, limit int) ([]model.BacktestRunModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Omit("records_json").Order("completed_at DESC").Limit(limit)
	if sym := strings.TrimSpace(symbol); sym != "" {
		q = q.Where("symbol = ?", sym)
	}
	var runs []model.BacktestRunModel
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// PruneRuns 只保留最近 keep 条；keep<=0 时不做清理。
func (s *GormStore) PruneRuns(ctx context.Context, symbol string, keep int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("gorm store 未初始化")
	}
	if keep <= 0 {
		return 0, nil
	}
	keepIDs := s.db.Model(&model.BacktestRunModel{}).
		Select("id").
		Where("symbol = ?", symbol).
		Order("completed_at DESC").
		Limit(keep)
	res := s.db.WithContext(ctx).
		Where("symbol = ? AND id NOT IN (?)", symbol, keepIDs).
		Delete(&model.BacktestRunModel{})
	return res.RowsAffected, res.Error
}

// --------------------- Live alerts -------------------------

func (s *GormStore) RecordAlert(ctx context.Context, alert *model.AlertModel) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("gorm store 未初始化")
	}
	if alert == nil || alert.Symbol == "" || alert.Day == "" {
		return false, fmt.Errorf("alert symbol/day 必填")
	}
	if alert.CreatedAtUnix == 0 {
		alert.CreatedAtUnix = time.Now().UnixMilli()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "day"}},
			DoNothing: true,
		}).
		Create(alert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) MarkDelivered(ctx context.Context, symbol, day string, delivered bool) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	return s.db.WithContext(ctx).
		Model(&model.AlertModel{}).
		Where("symbol = ? AND day = ?", symbol, day).
		Update("delivered", delivered).Error
}

// AlertedDays 返回最近 limit 个已告警日（倒序）。
func (s *GormStore) AlertedDays(ctx context.Context, symbol string, limit int) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	if limit <= 0 {
		limit = 30
	}
	var days []string
	err := s.db.WithContext(ctx).
		Model(&model.AlertModel{}).
		Where("symbol = ?", symbol).
		Order("day DESC").
		Limit(limit).
		Pluck("day", &days).Error
	return days, err
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
