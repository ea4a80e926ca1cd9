package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testTick = 10 * time.Millisecond

func newTestScheduler(t *testing.T, workers int) *Scheduler {
	t.Helper()
	s := NewScheduler(workers, WithTickInterval(testTick), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)
	return s
}

func TestSlotAddAndRemove(t *testing.T) {
	slot := NewSlot()
	slot.AddTask(NewTask("task-1", "game-1", 5, nil))
	slot.AddTask(NewTask("task-2", "game-2", 5, nil))
	assert.Equal(t, 2, slot.Count())

	assert.True(t, slot.RemoveTask("task-1"))
	assert.False(t, slot.RemoveTask("task-not-exist"))
	assert.Equal(t, 1, slot.Count())

	assert.Len(t, slot.Expire(), 1)
	assert.Zero(t, slot.Count())
	assert.Nil(t, slot.Expire())
}

func TestTimeWheelTicksFor(t *testing.T) {
	wheel := NewTimeWheel(time.Second)
	defer wheel.Stop()

	assert.Equal(t, 1, wheel.TicksFor(0))
	assert.Equal(t, 1, wheel.TicksFor(300*time.Millisecond))
	assert.Equal(t, 5, wheel.TicksFor(5*time.Second))
	assert.Equal(t, 6, wheel.TicksFor(5*time.Second+time.Millisecond))
	assert.Equal(t, 600, wheel.TicksFor(10*time.Minute))
}

func TestTimeWheelRounds(t *testing.T) {
	wheel := NewTimeWheel(time.Second)
	defer wheel.Stop()

	// 与一格任务落在同一槽位, 但要多转一圈
	wheel.AddTask(NewTask("long", "game-1", SlotCount+1, nil))
	wheel.AddTask(NewTask("short", "game-1", 1, nil))

	tasks := wheel.Tick()
	require.Len(t, tasks, 1)
	assert.Equal(t, "short", tasks[0].ID)
	assert.True(t, wheel.Contains("long"))

	for i := 1; i < SlotCount; i++ {
		require.Empty(t, wheel.Tick(), "tick %d", i)
	}
	tasks = wheel.Tick()
	require.Len(t, tasks, 1)
	assert.Equal(t, "long", tasks[0].ID)
	assert.Zero(t, wheel.TotalTaskCount())
}

func TestTimeWheelTick(t *testing.T) {
	wheel := NewTimeWheel(time.Second)
	defer wheel.Stop()

	wheel.AddTask(NewTask("task-1", "game-1", 1, nil))
	wheel.AddTask(NewTask("task-3", "game-1", 3, nil))
	assert.Equal(t, 2, wheel.TotalTaskCount())

	tasks := wheel.Tick()
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-1", tasks[0].ID)
	assert.False(t, wheel.Contains("task-1"))

	assert.Empty(t, wheel.Tick())
	tasks = wheel.Tick()
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-3", tasks[0].ID)
	assert.Zero(t, wheel.TotalTaskCount())
}

func TestTimeWheelReplaceAndRemove(t *testing.T) {
	wheel := NewTimeWheel(time.Second)
	defer wheel.Stop()

	wheel.AddTask(NewTask("task-1", "game-1", 1, nil))
	wheel.AddTask(NewTask("task-1", "game-1", 2, nil))
	assert.Equal(t, 1, wheel.TotalTaskCount())
	assert.Empty(t, wheel.Tick())
	assert.Len(t, wheel.Tick(), 1)

	// 删除不需要知道延迟
	wheel.AddTask(NewTask("task-2", "game-1", 30, nil))
	assert.True(t, wheel.RemoveTask("task-2"))
	assert.False(t, wheel.RemoveTask("task-2"))
	assert.Zero(t, wheel.TotalTaskCount())
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(5, WithTickInterval(testTick))
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(), ErrSchedulerRunning)

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.AddTask(NewTask("task-1", "game-1", 1, nil)), ErrSchedulerStopped)
	s.Stop()
}

func TestSchedulerAddRemoveTask(t *testing.T) {
	s := newTestScheduler(t, 5)

	assert.ErrorIs(t, s.AddTask(nil), ErrEmptyTask)
	assert.ErrorIs(t, s.AddTask(NewTask("", "game-1", 1, nil)), ErrEmptyTaskID)

	require.NoError(t, s.AddTask(NewTask("task-1", "game-1", 50, nil)))
	require.NoError(t, s.RemoveTask("task-1"))
	assert.ErrorIs(t, s.RemoveTask("task-not-exist"), ErrTaskNotFound)
}

func TestSchedulerTaskExecution(t *testing.T) {
	s := newTestScheduler(t, 5)

	var (
		mu      sync.Mutex
		targets []string
	)
	fn := func(ctx context.Context, target string, metadata map[string]any) error {
		mu.Lock()
		defer mu.Unlock()
		targets = append(targets, target)
		return nil
	}
	for i := 1; i <= 5; i++ {
		require.NoError(t, s.AddTask(NewTask(fmt.Sprintf("task-%d", i), fmt.Sprintf("game-%d", i), 1, fn)))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(targets) == 5
	}, time.Second, testTick)
	assert.Equal(t, int64(5), s.Stats().Executed)
}

func TestSchedulerAfterFuncAndCancel(t *testing.T) {
	s := newTestScheduler(t, 2)

	var fired, cancelled atomic.Int32
	require.NoError(t, s.AfterFunc("g:discard:1", 3*testTick, func() { fired.Add(1) }))
	require.NoError(t, s.AfterFunc("g:claim:2", 3*testTick, func() { cancelled.Add(1) }))
	s.Cancel("g:claim:2")
	s.Cancel("g:claim:2")

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, testTick)
	time.Sleep(5 * testTick)
	assert.Zero(t, cancelled.Load())
}

func TestSchedulerAfterFuncNeverEarly(t *testing.T) {
	s := newTestScheduler(t, 2)

	const delay = 5*testTick + testTick/2
	for i := 0; i < 5; i++ {
		fired := make(chan time.Duration, 1)
		start := time.Now()
		require.NoError(t, s.AfterFunc(fmt.Sprintf("g:discard:%d", i), delay, func() {
			fired <- time.Since(start)
		}))

		select {
		case elapsed := <-fired:
			assert.GreaterOrEqual(t, elapsed, delay)
		case <-time.After(time.Second):
			t.Fatal("task did not fire")
		}
		time.Sleep(testTick / 3)
	}
}

func TestSchedulerConcurrent(t *testing.T) {
	s := newTestScheduler(t, 10)

	var executed atomic.Int32
	fn := func(ctx context.Context, target string, metadata map[string]any) error {
		executed.Add(1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = s.AddTask(NewTask(fmt.Sprintf("task-%d", id), "game", 1+id%5, fn))
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return executed.Load() == 100 }, 2*time.Second, testTick)
}

func TestWorkerPoolPanicRecover(t *testing.T) {
	s := newTestScheduler(t, 5)

	var executed atomic.Int32
	require.NoError(t, s.AddTask(NewTask("task-panic", "game-1", 1, func(context.Context, string, map[string]any) error {
		executed.Add(1)
		panic("测试 panic")
	})))
	require.NoError(t, s.AddTask(NewTask("task-fail", "game-2", 1, func(context.Context, string, map[string]any) error {
		executed.Add(1)
		return fmt.Errorf("测试错误")
	})))
	require.NoError(t, s.AddTask(NewTask("task-normal", "game-3", 1, func(context.Context, string, map[string]any) error {
		executed.Add(1)
		return nil
	})))

	require.Eventually(t, func() bool { return executed.Load() == 3 }, time.Second, testTick)
	require.Eventually(t, func() bool {
		stats := s.Stats()
		return stats.Panicked == 1 && stats.Failed == 1
	}, time.Second, testTick)
}

func BenchmarkTimeWheelTick(b *testing.B) {
	wheel := NewTimeWheel(time.Second)
	defer wheel.Stop()
	for i := 0; i < 100; i++ {
		wheel.AddTask(NewTask(fmt.Sprintf("task-%d", i), "game", 1+i%SlotCount, nil))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wheel.Tick()
	}
}
