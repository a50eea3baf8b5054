package monitor

import (
	"context"
	"time"

	"niftyfib/internal/scheduler"
)

// Loop 按 interval 对齐整点调用 Tick，直到 ctx 结束。STOPPED 时每轮都是空操作。
func (m *Monitor) Loop(ctx context.Context, interval time.Duration) {
	sched := scheduler.NewAlignedScheduler(ctx, interval, 0)
	sched.Name = "monitor"
	sched.Start(func(ctx context.Context) {
		if !m.Active() {
			return
		}
		if _, err := m.Tick(ctx); err != nil {
			log.Warnf("%s tick: %v", m.symbol, err)
		}
	})
}
