package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"niftyfib/internal/logger"
)

var log = logger.Tag("tasks")

// Pool 运行后台任务：提交即返回，并发数受 sem 限制，
// 任务使用宿主 ctx，出错或 panic 只记录日志。
type Pool struct {
	sem     chan struct{}
	baseCtx context.Context
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	inflight atomic.Int64
}

func NewPool(ctx context.Context, maxConcurrent int) *Pool {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Pool{
		sem:     make(chan struct{}, maxConcurrent),
		baseCtx: ctx,
	}
}

// Submit 异步执行 fn；池已关闭时返回 false。
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	if fn == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Warnf("任务池已关闭，丢弃 %s", name)
		return false
	}
	p.wg.Add(1)
	p.inflight.Add(1)
	go p.run(name, fn)
	return true
}

func (p *Pool) run(name string, fn func(ctx context.Context) error) {
	defer p.wg.Done()
	defer p.inflight.Add(-1)

	select {
	case p.sem <- struct{}{}:
	case <-p.baseCtx.Done():
		log.Warnf("%s 未开始即取消: %v", name, p.baseCtx.Err())
		return
	}
	defer func() { <-p.sem }()

	start := time.Now()
	err := p.safeCall(name, fn)
	if err != nil {
		log.Warnf("%s 失败 (%s): %v", name, time.Since(start).Truncate(time.Millisecond), err)
		return
	}
	log.Debugf("%s 完成 (%s)", name, time.Since(start).Truncate(time.Millisecond))
}

func (p *Pool) safeCall(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s panic: %v\n%s", name, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(p.baseCtx)
}

// InFlight 返回已提交但未结束的任务数。
func (p *Pool) InFlight() int64 { return p.inflight.Load() }

// Close 拒绝新任务；已提交的任务继续运行。
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait 等待所有已提交任务结束。
func (p *Pool) Wait() { p.wg.Wait() }
