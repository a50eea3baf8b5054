package market

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache 把日线按 ticker+日期落到单个 sqlite 文件（重复日期覆盖）。
type SQLiteCache struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewSQLiteCache(path string) (*SQLiteCache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("bar cache path 不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureCacheSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteCache{db: db, path: path}, nil
}

func ensureCacheSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			ticker     TEXT NOT NULL,
			day        TEXT NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (ticker, day)
		);`)
	return err
}

func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Upsert 批量写入日线。
func (c *SQLiteCache) Upsert(ctx context.Context, ticker string, bars []Bar) error {
	if len(bars) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return fmt.Errorf("bar cache 已关闭")
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_bars (ticker, day, open, high, low, close, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, day) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    updated_at=excluded.updated_at`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	now := time.Now().UnixMilli()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.Date.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Recent 返回最近 limit 根日线，按日期升序。
func (c *SQLiteCache) Recent(ctx context.Context, ticker string, limit int) ([]Bar, error) {
	if limit <= 0 {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, fmt.Errorf("bar cache 已关闭")
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT day, open, high, low, close FROM daily_bars
		WHERE ticker = ? ORDER BY day DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Bar
	for rows.Next() {
		var (
			day string
			b   Bar
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close); err != nil {
			return nil, err
		}
		b.Date, err = time.Parse("2006-01-02", day)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}
