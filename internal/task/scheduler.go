package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Option 调度器选项
type Option func(*Scheduler)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTickInterval 设置时间轮每格时长
func WithTickInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// Scheduler 任务调度器
//
// 时钟协程每格推进一次时间轮, 到期任务交给工作协程池执行。
type Scheduler struct {
	wheel       *TimeWheel
	workerPool  *WorkerPool
	workerCount int
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *zap.Logger
	running     bool
	runningMu   sync.RWMutex
}

// Stats 调度器统计信息
type Stats struct {
	Running        bool  `json:"running"`
	CurrentSlot    int   `json:"currentSlot"`
	TotalTaskCount int   `json:"totalTaskCount"`
	WorkerCount    int   `json:"workerCount"`
	Executed       int64 `json:"executed"`
	Failed         int64 `json:"failed"`
	Panicked       int64 `json:"panicked"`
}

// NewScheduler 创建任务调度器
func NewScheduler(workerCount int, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workerCount: workerCount,
		interval:    DefaultTick,
		ctx:         ctx,
		cancel:      cancel,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	s.wheel = NewTimeWheel(s.interval)
	s.workerPool = NewWorkerPool(workerCount, s.logger)
	return s
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.runningMu.Unlock()

	s.workerPool.Start()
	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("任务调度器已启动", zap.Duration("interval", s.wheel.Interval()))
	return nil
}

// tickLoop 时钟循环协程
func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := s.wheel.Ticker()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

// onTick 推进时间轮并提交到期任务
func (s *Scheduler) onTick() {
	tasks := s.wheel.Tick()
	if len(tasks) == 0 {
		return
	}
	s.logger.Debug("时钟触发",
		zap.Int("currentSlot", s.wheel.CurrentSlot()),
		zap.Int("taskCount", len(tasks)))
	s.workerPool.SubmitBatch(tasks)
}

// Stop 停止调度器, 未到期的任务被丢弃
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.wheel.Stop()
	s.workerPool.Stop()

	s.logger.Info("任务调度器已停止", zap.Int("dropped", s.wheel.TotalTaskCount()))
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return ErrSchedulerStopped
	}
	if task == nil {
		return ErrEmptyTask
	}
	if task.ID == "" {
		return ErrEmptyTaskID
	}

	s.logger.Debug("添加任务",
		zap.String("taskId", task.ID),
		zap.String("target", task.Target),
		zap.Int("delay", task.Delay))
	s.wheel.AddTask(task)
	return nil
}

// RemoveTask 删除任务
func (s *Scheduler) RemoveTask(taskID string) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return ErrSchedulerStopped
	}
	if taskID == "" {
		return ErrEmptyTaskID
	}
	if !s.wheel.RemoveTask(taskID) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	s.logger.Debug("删除任务", zap.String("taskId", taskID))
	return nil
}

// AfterFunc 在 delay 之后执行 fn, 最多晚一格多, 不会提前
func (s *Scheduler) AfterFunc(id string, delay time.Duration, fn func()) error {
	// 当前格已经走过一部分, 多等一格
	ticks := s.wheel.TicksFor(delay) + 1
	task := NewTask(id, id, ticks, func(context.Context, string, map[string]any) error {
		fn()
		return nil
	})
	return s.AddTask(task)
}

// Cancel 取消任务, 任务不存在时忽略
func (s *Scheduler) Cancel(id string) {
	if err := s.RemoveTask(id); err != nil {
		s.logger.Debug("取消任务", zap.String("taskId", id), zap.Error(err))
	}
}

// IsRunning 调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()
	return s.running
}

// Stats 统计信息
func (s *Scheduler) Stats() Stats {
	return Stats{
		Running:        s.IsRunning(),
		CurrentSlot:    s.wheel.CurrentSlot(),
		TotalTaskCount: s.wheel.TotalTaskCount(),
		WorkerCount:    s.workerPool.workerCount,
		Executed:       s.workerPool.executed.Load(),
		Failed:         s.workerPool.failed.Load(),
		Panicked:       s.workerPool.panicked.Load(),
	}
}
