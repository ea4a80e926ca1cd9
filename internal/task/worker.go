package task

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// WorkerPool 工作协程池
type WorkerPool struct {
	workerCount int
	taskChan    chan *Task
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *zap.Logger

	executed atomic.Int64
	failed   atomic.Int64
	panicked atomic.Int64
}

// NewWorkerPool 创建工作协程池
func NewWorkerPool(workerCount int, logger *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		taskChan:    make(chan *Task, workerCount*2),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start 启动工作协程池
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Info("工作协程池已启动", zap.Int("workerCount", wp.workerCount))
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug("工作协程退出", zap.Int("workerId", id))
			return
		case task := <-wp.taskChan:
			if task == nil {
				continue
			}
			wp.execute(id, task)
		}
	}
}

// execute 执行任务, panic 不会影响其他任务
func (wp *WorkerPool) execute(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.panicked.Add(1)
			wp.logger.Error("任务执行 panic",
				zap.Int("workerId", workerID),
				zap.String("taskId", task.ID),
				zap.String("target", task.Target),
				zap.Any("panic", r))
		}
	}()

	wp.executed.Add(1)
	if err := task.Execute(wp.ctx); err != nil {
		wp.failed.Add(1)
		wp.logger.Error("任务执行失败",
			zap.Int("workerId", workerID),
			zap.String("taskId", task.ID),
			zap.String("target", task.Target),
			zap.Error(err))
		return
	}
	wp.logger.Debug("任务执行成功", zap.String("taskId", task.ID), zap.String("target", task.Target))
}

// Submit 提交任务, 通道已满时阻塞直到有空位或协程池关闭
func (wp *WorkerPool) Submit(task *Task) {
	select {
	case wp.taskChan <- task:
		return
	case <-wp.ctx.Done():
		wp.logger.Warn("工作池已关闭,任务提交失败", zap.String("taskId", task.ID))
		return
	default:
	}

	wp.logger.Warn("任务通道已满,任务可能延迟执行", zap.String("taskId", task.ID))
	select {
	case wp.taskChan <- task:
	case <-wp.ctx.Done():
	}
}

// SubmitBatch 批量提交任务
func (wp *WorkerPool) SubmitBatch(tasks []*Task) {
	for _, task := range tasks {
		wp.Submit(task)
	}
}

// Stop 停止工作协程池
func (wp *WorkerPool) Stop() {
	wp.cancel()
	wp.wg.Wait()
	wp.logger.Info("工作协程池已停止",
		zap.Int64("executed", wp.executed.Load()),
		zap.Int64("failed", wp.failed.Load()),
		zap.Int64("panicked", wp.panicked.Load()))
}
