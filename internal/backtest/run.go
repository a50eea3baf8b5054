package backtest

import (
	"time"

	"niftyfib/internal/signal"
)

// Run 是一次完成的回测，产出后只读；Records 最新在前。
type Run struct {
	ID          string
	Symbol      string
	Records     []signal.Record
	StartedAt   time.Time
	CompletedAt time.Time
}

// Status 供 /api/backtest/status 展示。
type Status struct {
	Running     bool       `json:"running"`
	LastRunID   string     `json:"last_run_id,omitempty"`
	Records     int        `json:"records"`
	Message     string     `json:"message,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Triggers 返回触发记录，保持原顺序。
func (r *Run) Triggers() []signal.Record {
	if r == nil {
		return nil
	}
	out := make([]signal.Record, 0)
	for _, rec := range r.Records {
		if rec.IsTrigger() {
			out = append(out, rec)
		}
	}
	return out
}
