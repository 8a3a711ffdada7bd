package executor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrQueueFull 当队列无可用 slot 时返回。
	ErrQueueFull = errors.New("executor queue full")
	// ErrClosed 表示执行器已关闭。
	ErrClosed = errors.New("executor closed")
)

// Executor 是任务执行上下文。
type Executor interface {
	Submit(task func()) error
}

// Inline 在调用方 goroutine 上同步执行任务。
type Inline struct{}

// Submit 立即执行 task。
func (Inline) Submit(task func()) error {
	if task == nil {
		return errors.New("task is required")
	}
	task()
	return nil
}

// Pool 是有界队列加固定数量 worker 的执行器；Workers 为 1 时任务串行执行。
type Pool struct {
	cfg     Config
	queue   chan func()
	stopCh  chan struct{}
	metrics *Metrics
	logger  *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewPool 创建并启动后台 worker。
func NewPool(cfg Config) *Pool {
	normalized := cfg.normalize()
	p := &Pool{
		cfg:     normalized,
		queue:   make(chan func(), normalized.MaxQueue),
		stopCh:  make(chan struct{}),
		metrics: normalized.Metrics,
		logger:  normalized.Logger,
	}
	p.start()
	return p
}

// Submit 将任务放入队列，队列满或已关闭时返回错误。
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return errors.New("task is required")
	}
	if p.closed.Load() {
		return ErrClosed
	}
	select {
	case p.queue <- task:
		p.metrics.incQueueDepth(p.cfg.Name)
		return nil
	default:
		p.metrics.incRejected(p.cfg.Name)
		return ErrQueueFull
	}
}

// Name 返回执行器名称。
func (p *Pool) Name() string { return p.cfg.Name }

// Depth 返回排队中的任务数。
func (p *Pool) Depth() int { return len(p.queue) }

// Workers 返回 worker 数量。
func (p *Pool) Workers() int { return p.cfg.Workers }

// Close 停止 worker 并等待执行中的任务结束，未执行的任务被丢弃。
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stopCh)
	})
	p.wg.Wait()
}

func (p *Pool) start() {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

func (p *Pool) workerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case task := <-p.queue:
			p.metrics.decQueueDepth(p.cfg.Name)
			p.run(task)
		}
	}
}

func (p *Pool) run(task func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.metrics.incPanic(p.cfg.Name)
			p.logger.Error("executor task panicked", slog.String("executor", p.cfg.Name), slog.String("panic", fmt.Sprint(r)))
		}
		p.metrics.observeLatency(p.cfg.Name, float64(time.Since(start).Microseconds())/1000)
	}()
	task()
}
