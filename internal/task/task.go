package task

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSchedulerStopped = errors.New("调度器未运行")
	ErrSchedulerRunning = errors.New("调度器已经在运行中")
	ErrEmptyTask        = errors.New("任务不能为空")
	ErrEmptyTaskID      = errors.New("任务ID不能为空")
	ErrTaskNotFound     = errors.New("任务不存在")
)

// TaskFunc 任务执行函数类型
type TaskFunc func(ctx context.Context, target string, metadata map[string]any) error

// Task 延时任务
type Task struct {
	ID        string         `json:"id"`        // 任务唯一ID, 重复添加时替换旧任务
	Target    string         `json:"target"`    // 操作对象, 通常是牌局ID
	Delay     int            `json:"delay"`     // 延迟格数, 默认每格一秒
	Fn        TaskFunc       `json:"-"`         // 执行函数
	Metadata  map[string]any `json:"metadata"`  // 元数据
	CreatedAt time.Time      `json:"createdAt"` // 创建时间

	rounds int // 还需转过的圈数
}

// NewTask 创建新任务
func NewTask(id, target string, delay int, fn TaskFunc) *Task {
	return &Task{
		ID:        id,
		Target:    target,
		Delay:     delay,
		Fn:        fn,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// Execute 执行任务
func (t *Task) Execute(ctx context.Context) error {
	if t.Fn == nil {
		return nil
	}
	return t.Fn(ctx, t.Target, t.Metadata)
}
