package backtest

import (
	"time"

	"niftyfib/internal/market"
	"niftyfib/internal/signal"
)

// RecentTriggerCount 是报告里列出的最近触发条数。
const RecentTriggerCount = 5

// Summary 是回测报告的统计部分。From 是第一条记录（最新）的日期，
// To 是最后一条（最早）的日期，与看板的列表顺序一致。
type Summary struct {
	RunID       string          `json:"run_id"`
	Symbol      string          `json:"symbol"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	TotalDays   int             `json:"total_days"`
	Triggers    int             `json:"triggers"`
	HitRate     float64         `json:"hit_rate"`
	CompletedAt time.Time       `json:"completed_at"`
	Recent      []signal.Record `json:"-"`
	RecentViews []signal.View   `json:"recent_triggers"`
}

// Summarize 统计触发次数与命中率（triggers/total*100，无数据时为 0），
// 并取最近的 5 次触发。run 为 nil 时返回零值。
func Summarize(run *Run) Summary {
	if run == nil {
		return Summary{RecentViews: []signal.View{}}
	}
	sum := Summary{
		RunID:       run.ID,
		Symbol:      run.Symbol,
		TotalDays:   len(run.Records),
		CompletedAt: run.CompletedAt,
	}
	if sum.TotalDays > 0 {
		sum.From = run.Records[0].Date.Format(market.DateLayout)
		sum.To = run.Records[sum.TotalDays-1].Date.Format(market.DateLayout)
	}
	triggers := run.Triggers()
	sum.Triggers = len(triggers)
	if sum.TotalDays > 0 {
		sum.HitRate = float64(sum.Triggers) / float64(sum.TotalDays) * 100
	}
	if len(triggers) > RecentTriggerCount {
		triggers = triggers[:RecentTriggerCount]
	}
	sum.Recent = triggers
	sum.RecentViews = signal.Views(triggers)
	return sum
}
