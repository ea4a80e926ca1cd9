package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
)

// ArchiveRecord 已结束牌局的归档内容
type ArchiveRecord struct {
	Result     fzmahjong.Result
	Preset     string
	Players    []string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Archiver 牌局归档
type Archiver interface {
	Archive(ctx context.Context, record ArchiveRecord) error
}

// ManagerConfig 清理参数
type ManagerConfig struct {
	EvictInterval time.Duration // 清理间隔
	EvictAfter    time.Duration // 已结束牌局的保留时间
	IdleTimeout   time.Duration // 未结束牌局无人操作的超时, 0 表示不清理
}

// GameManager 游戏管理器
type GameManager struct {
	games sync.Map // gameId -> *Game

	archiver      Archiver
	evictInterval time.Duration
	evictAfter    time.Duration
	idleTimeout   time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	closed   chan struct{}

	logger *zap.Logger
}

// NewGameManager 创建游戏管理器并启动清理循环
//
// 已结束超过 EvictAfter 的牌局在归档后从内存中移除。archiver 为 nil 时直接移除。
// 超过 IdleTimeout 没有玩家操作的牌局直接关闭。
func NewGameManager(cfg ManagerConfig, archiver Archiver, logger *zap.Logger) *GameManager {
	if cfg.EvictInterval <= 0 {
		cfg.EvictInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &GameManager{
		archiver:      archiver,
		evictInterval: cfg.EvictInterval,
		evictAfter:    cfg.EvictAfter,
		idleTimeout:   cfg.IdleTimeout,
		stopChan:      make(chan struct{}),
		closed:        make(chan struct{}),
		logger:        logger.With(zap.String("component", "GameManager")),
	}
	go m.evictLoop()
	return m
}

// Add 加入新牌局
func (m *GameManager) Add(game *Game) error {
	select {
	case <-m.stopChan:
		return ErrManagerClosed
	default:
	}
	if _, loaded := m.games.LoadOrStore(game.ID(), game); loaded {
		return ErrDuplicateGame.WithContext("gameId", game.ID())
	}
	return nil
}

// Get 获取牌局
func (m *GameManager) Get(gameID string) (*Game, bool) {
	val, ok := m.games.Load(gameID)
	if !ok {
		return nil, false
	}
	return val.(*Game), true
}

// Remove 移除牌局并取消其定时任务
func (m *GameManager) Remove(gameID string) {
	val, ok := m.games.LoadAndDelete(gameID)
	if !ok {
		return
	}
	val.(*Game).Engine().Close()
	m.logger.Info("移除牌局", zap.String("gameId", gameID))
}

// Count 当前牌局数
func (m *GameManager) Count() int {
	count := 0
	m.games.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// evictLoop 清理循环
func (m *GameManager) evictLoop() {
	defer close(m.closed)

	ticker := time.NewTicker(m.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.evictInterval)
			now := time.Now()
			m.evictFinished(ctx, now)
			m.evictIdle(now)
			cancel()
		case <-m.stopChan:
			m.logger.Info("清理循环已停止")
			return
		}
	}
}

// evictFinished 归档并移除结束时间早于 now-evictAfter 的牌局, 返回移除数量
func (m *GameManager) evictFinished(ctx context.Context, now time.Time) int {
	var toEvict []*Game
	m.games.Range(func(_, value any) bool {
		game := value.(*Game)
		finishedAt := game.FinishedAt()
		if !finishedAt.IsZero() && now.Sub(finishedAt) >= m.evictAfter {
			toEvict = append(toEvict, game)
		}
		return true
	})

	evicted := 0
	for _, game := range toEvict {
		if err := m.archive(ctx, game); err != nil {
			// 归档失败的牌局留到下一轮
			m.logger.Warn("归档牌局失败", zap.String("gameId", game.ID()), zap.Error(err))
			continue
		}
		m.Remove(game.ID())
		evicted++
	}
	if evicted > 0 {
		m.logger.Info("清理已结束的牌局", zap.Int("count", evicted), zap.Int("remaining", m.Count()))
	}
	return evicted
}

// evictIdle 关闭长时间无人操作且未结束的牌局, 返回移除数量
func (m *GameManager) evictIdle(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	evicted := 0
	m.games.Range(func(_, value any) bool {
		game := value.(*Game)
		if !game.FinishedAt().IsZero() {
			return true
		}
		if idle := now.Sub(game.LastActiveTime()); idle >= m.idleTimeout {
			m.logger.Warn("牌局长时间无人操作, 关闭",
				zap.String("gameId", game.ID()),
				zap.Duration("idle", idle))
			m.Remove(game.ID())
			evicted++
		}
		return true
	})
	return evicted
}

// archive 归档已结束的牌局, 已归档的直接返回
func (m *GameManager) archive(ctx context.Context, game *Game) error {
	if m.archiver == nil || game.IsArchived() {
		return nil
	}
	result, ok := game.Engine().Result()
	if !ok {
		return nil
	}
	record := ArchiveRecord{
		Result:     result,
		Preset:     game.Preset(),
		Players:    game.Engine().PlayerNames(),
		CreatedAt:  game.createdAt,
		FinishedAt: game.FinishedAt(),
	}
	if err := m.archiver.Archive(ctx, record); err != nil {
		return err
	}
	game.MarkArchived()
	return nil
}

// Shutdown 停止清理循环, 归档所有已结束的牌局并取消全部定时任务
func (m *GameManager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopChan) })
	select {
	case <-m.closed:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.games.Range(func(_, value any) bool {
		game := value.(*Game)
		if err := m.archive(ctx, game); err != nil {
			m.logger.Warn("关闭时归档牌局失败", zap.String("gameId", game.ID()), zap.Error(err))
		}
		game.Engine().Close()
		return true
	})
	m.logger.Info("GameManager 已关闭")
	return nil
}
