package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"niftyfib/internal/signal"
	"niftyfib/internal/store"
	"niftyfib/internal/store/model"

	"gorm.io/datatypes"
)

// HistoryEntry 是持久化的一次回测。列表接口不携带 Records。
type HistoryEntry struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	TotalDays   int           `json:"total_days"`
	Triggers    int           `json:"triggers"`
	HitRate     float64       `json:"hit_rate"`
	Records     []signal.View `json:"records,omitempty"`
}

// ErrRunNotFound 在历史中找不到指定 ID。
var ErrRunNotFound = store.ErrNotFound

func (r *Runner) persist(ctx context.Context, run *Run, sum Summary) error {
	if r.history == nil {
		return nil
	}
	payload, err := json.Marshal(signal.Views(run.Records))
	if err != nil {
		return err
	}
	m := &model.BacktestRunModel{
		ID:          run.ID,
		Symbol:      run.Symbol,
		StartedAt:   run.StartedAt.UnixMilli(),
		CompletedAt: run.CompletedAt.UnixMilli(),
		PeriodStart: sum.From,
		PeriodEnd:   sum.To,
		TotalDays:   sum.TotalDays,
		Triggers:    sum.Triggers,
		HitRate:     sum.HitRate,
		Records:     datatypes.JSON(payload),
	}
	if err := r.history.SaveRun(ctx, m); err != nil {
		return err
	}
	if r.historyKeep > 0 {
		removed, err := r.history.PruneRuns(ctx, run.Symbol, r.historyKeep)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Debugf("%s 清理历史回测 %d 条", run.Symbol, removed)
		}
	}
	return nil
}

// History 返回最近 limit 次回测（最新在前）。
func (r *Runner) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if r.history == nil {
		return nil, ErrHistoryDisabled
	}
	rows, err := r.history.ListRuns(ctx, r.symbol, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(rows))
	for i := range rows {
		entry, err := entryFromModel(&rows[i], false)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// HistoryRun 返回单次回测及其全部记录。
func (r *Runner) HistoryRun(ctx context.Context, id string) (*HistoryEntry, error) {
	if r.history == nil {
		return nil, ErrHistoryDisabled
	}
	row, err := r.history.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	entry, err := entryFromModel(row, true)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func entryFromModel(m *model.BacktestRunModel, withRecords bool) (HistoryEntry, error) {
	entry := HistoryEntry{
		ID:          m.ID,
		Symbol:      m.Symbol,
		StartedAt:   time.UnixMilli(m.StartedAt),
		CompletedAt: time.UnixMilli(m.CompletedAt),
		From:        m.PeriodStart,
		To:          m.PeriodEnd,
		TotalDays:   m.TotalDays,
		Triggers:    m.Triggers,
		HitRate:     m.HitRate,
	}
	if withRecords {
		entry.Records = []signal.View{}
		if len(m.Records) > 0 {
			if err := json.Unmarshal(m.Records, &entry.Records); err != nil {
				return HistoryEntry{}, err
			}
		}
	}
	return entry, nil
}
