package market

import "context"

// Source 是日线上游（Yahoo chart API 等）。
type Source interface {
	Name() string
	// FetchDaily 返回最近约 days 个自然日内的原始日线，顺序不作保证。
	FetchDaily(ctx context.Context, ticker string, days int) ([]RawBar, error)
}

// BarCache 保存最近一次成功拉取的日线，上游故障时兜底。
type BarCache interface {
	Upsert(ctx context.Context, ticker string, bars []Bar) error
	Recent(ctx context.Context, ticker string, limit int) ([]Bar, error)
}
