package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.im.mahjong/internal/task"
)

const (
	stateConnected    = "connected"
	stateDisconnected = "disconnected"
)

// NATSConn *nats.Conn
type NATSConn interface {
	IsConnected() bool
}

// RedisPinger *redis.Client
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// DBPinger *pgxpool.Pool
type DBPinger interface {
	Ping(ctx context.Context) error
}

// GameCounter 内存中的牌局数
type GameCounter interface {
	Count() int
}

// SchedulerStats 定时任务调度器
type SchedulerStats interface {
	Stats() task.Stats
}

// RequestQueue NATS 请求缓冲队列
type RequestQueue interface {
	BufferUsage() (current int, capacity int)
}

// QueueStatus 请求缓冲区占用
type QueueStatus struct {
	Current  int `json:"current"`
	Capacity int `json:"capacity"`
}

// Full 缓冲区已满, 新请求会被丢弃
func (q *QueueStatus) Full() bool {
	return q.Capacity > 0 && q.Current >= q.Capacity
}

// Status 健康状态
type Status struct {
	NATS      string       `json:"nats"`
	Redis     string       `json:"redis"`
	Database  string       `json:"database"`
	Games     int          `json:"games"`
	Scheduler *task.Stats  `json:"scheduler,omitempty"`
	Queue     *QueueStatus `json:"queue,omitempty"`
}

// Healthy 依赖是否都可用, 调度器也必须在运行, 请求缓冲区未满
func (s *Status) Healthy() bool {
	if s.NATS != stateConnected || s.Redis != stateConnected || s.Database != stateConnected {
		return false
	}
	if s.Queue != nil && s.Queue.Full() {
		return false
	}
	return s.Scheduler == nil || s.Scheduler.Running
}

// Checker 健康检查器
type Checker struct {
	nc          NATSConn
	redisClient RedisPinger
	db          DBPinger
	games       GameCounter
	scheduler   SchedulerStats
	queue       RequestQueue
	timeout     time.Duration
}

// NewChecker 创建健康检查器, games 和 scheduler 可以为 nil
func NewChecker(nc NATSConn, redisClient RedisPinger, db DBPinger, games GameCounter, scheduler SchedulerStats) *Checker {
	return &Checker{
		nc:          nc,
		redisClient: redisClient,
		db:          db,
		games:       games,
		scheduler:   scheduler,
		timeout:     2 * time.Second,
	}
}

// WithQueue 同时检查请求缓冲区
func (h *Checker) WithQueue(queue RequestQueue) *Checker {
	h.queue = queue
	return h
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		NATS:     stateDisconnected,
		Redis:    stateDisconnected,
		Database: stateDisconnected,
	}

	// 检查 NATS
	if h.nc != nil && h.nc.IsConnected() {
		status.NATS = stateConnected
	}

	// 检查 Redis
	if h.redisClient != nil {
		redisCtx, redisCancel := context.WithTimeout(ctx, h.timeout)
		if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
			status.Redis = stateConnected
		}
		redisCancel()
	}

	// 检查 PostgreSQL
	if h.db != nil {
		dbCtx, dbCancel := context.WithTimeout(ctx, h.timeout)
		if err := h.db.Ping(dbCtx); err == nil {
			status.Database = stateConnected
		}
		dbCancel()
	}

	if h.games != nil {
		status.Games = h.games.Count()
	}
	if h.scheduler != nil {
		stats := h.scheduler.Stats()
		status.Scheduler = &stats
	}
	if h.queue != nil {
		current, capacity := h.queue.BufferUsage()
		status.Queue = &QueueStatus{Current: current, Capacity: capacity}
	}

	return status
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Healthy()
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// ReadyHandler /ready 端点
func (h *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.IsHealthy(r.Context()) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready"))
	}
}
