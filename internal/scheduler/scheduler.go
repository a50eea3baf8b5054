package scheduler

import (
	"context"
	"time"

	"niftyfib/internal/logger"
)

var log = logger.Tag("scheduler")

// AlignedScheduler runs a task on wall-clock boundaries of Interval
// (e.g. every :00/:15/:30/:45 for 15m), shifted by Offset.
type AlignedScheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
	// wait is swapped in tests to avoid real timers.
	wait func(ctx context.Context, d time.Duration) bool
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
		wait:     sleepCtx,
	}
}

// Start blocks until ctx is done, invoking task at every aligned slot.
func (s *AlignedScheduler) Start(task func(ctx context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		log.Warnf("%s: task is nil, exit", s.label())
		return
	}
	if s.Interval <= 0 {
		log.Warnf("%s: invalid interval=%s, exit", s.label(), s.Interval)
		return
	}
	if s.Offset < 0 {
		log.Warnf("%s: negative offset=%s, clamp to 0", s.label(), s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	if s.wait == nil {
		s.wait = sleepCtx
	}

	startAt := s.nowFn().UTC()
	log.Infof("%s: started interval=%s offset=%s run_immediately=%v at=%s",
		s.label(), s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		task(s.ctx)
	}

	for {
		now := s.nowFn().UTC()
		wakeAt, wait := s.nextTimes(now)
		log.Debugf("%s: next run at %s (in %s) | uptime=%s",
			s.label(),
			wakeAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)
		if !s.wait(s.ctx, wait) {
			log.Infof("%s: ctx done, exit", s.label())
			return
		}
		task(s.ctx)
	}
}

func (s *AlignedScheduler) label() string {
	if s.Name == "" {
		return "AlignedScheduler"
	}
	return "AlignedScheduler[" + s.Name + "]"
}

func (s *AlignedScheduler) nextTimes(now time.Time) (wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	wakeAt = now.Truncate(s.Interval).Add(s.Offset)
	if !wakeAt.After(now) {
		wakeAt = wakeAt.Add(s.Interval)
	}
	return wakeAt, wakeAt.Sub(now)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
