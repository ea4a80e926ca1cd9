package task

import (
	"sync"
	"time"
)

const (
	// SlotCount 时间轮槽位数量
	SlotCount = 60
	// DefaultTick 默认每格时长
	DefaultTick = time.Second
)

// TimeWheel 单层时间轮, 超过一圈的任务记录剩余圈数
//
// 任务按 ID 建立索引, 删除时不需要知道任务的延迟。
type TimeWheel struct {
	slots    [SlotCount]*Slot
	interval time.Duration

	mu          sync.Mutex
	currentSlot int
	index       map[string]int // taskID -> 槽位
	ticker      *time.Ticker
}

// NewTimeWheel 创建时间轮, interval 为每格时长
func NewTimeWheel(interval time.Duration) *TimeWheel {
	if interval <= 0 {
		interval = DefaultTick
	}
	tw := &TimeWheel{
		interval: interval,
		index:    make(map[string]int),
		ticker:   time.NewTicker(interval),
	}
	for i := 0; i < SlotCount; i++ {
		tw.slots[i] = NewSlot()
	}
	return tw
}

// Interval 每格时长
func (tw *TimeWheel) Interval() time.Duration {
	return tw.interval
}

// TicksFor 把时长换算成格数, 不足一格按一格计
func (tw *TimeWheel) TicksFor(d time.Duration) int {
	ticks := int((d + tw.interval - 1) / tw.interval)
	if ticks < 1 {
		return 1
	}
	return ticks
}

// AddTask 添加任务, 同 ID 的旧任务会被替换
func (tw *TimeWheel) AddTask(task *Task) {
	if task.Delay < 1 {
		task.Delay = 1
	}
	task.rounds = (task.Delay - 1) / SlotCount

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if old, ok := tw.index[task.ID]; ok {
		tw.slots[old].RemoveTask(task.ID)
	}
	target := (tw.currentSlot + task.Delay) % SlotCount
	tw.slots[target].AddTask(task)
	tw.index[task.ID] = target
}

// RemoveTask 删除任务
func (tw *TimeWheel) RemoveTask(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	slot, ok := tw.index[taskID]
	if !ok {
		return false
	}
	delete(tw.index, taskID)
	return tw.slots[slot].RemoveTask(taskID)
}

// Tick 推进一格, 返回到期的任务
func (tw *TimeWheel) Tick() []*Task {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.currentSlot = (tw.currentSlot + 1) % SlotCount
	tasks := tw.slots[tw.currentSlot].Expire()
	for _, task := range tasks {
		delete(tw.index, task.ID)
	}
	return tasks
}

// CurrentSlot 当前槽位索引
func (tw *TimeWheel) CurrentSlot() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.currentSlot
}

// Contains 任务是否仍在等待
func (tw *TimeWheel) Contains(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	_, ok := tw.index[taskID]
	return ok
}

// TotalTaskCount 等待中的任务总数
func (tw *TimeWheel) TotalTaskCount() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return len(tw.index)
}

// Ticker 驱动时间轮的定时器
func (tw *TimeWheel) Ticker() *time.Ticker {
	return tw.ticker
}

// Stop 停止定时器
func (tw *TimeWheel) Stop() {
	tw.ticker.Stop()
}
