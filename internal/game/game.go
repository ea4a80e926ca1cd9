package game

import (
	"sync"
	"time"

	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
)

// Game 管理器中的一局游戏
//
// 牌局状态只在 Engine 内部修改, Game 只记录活跃时间与归档状态。
type Game struct {
	mu sync.RWMutex

	engine     *fzmahjong.Engine
	preset     string
	createdAt  time.Time
	lastActive time.Time
	finishedAt time.Time
	archived   bool
}

// NewGame 创建游戏
func NewGame(engine *fzmahjong.Engine, preset string) *Game {
	now := time.Now()
	return &Game{
		engine:     engine,
		preset:     preset,
		createdAt:  now,
		lastActive: now,
	}
}

// ID 牌局ID
func (g *Game) ID() string {
	return g.engine.ID()
}

// Engine 牌局引擎
func (g *Game) Engine() *fzmahjong.Engine {
	return g.engine
}

// Preset 规则名
func (g *Game) Preset() string {
	return g.preset
}

// Touch 更新最后活跃时间
func (g *Game) Touch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastActive = time.Now()
}

// LastActiveTime 最后活跃时间
func (g *Game) LastActiveTime() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastActive
}

// MarkFinished 记录结束时间, 只有第一次调用生效
func (g *Game) MarkFinished(at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finishedAt.IsZero() {
		g.finishedAt = at
	}
}

// FinishedAt 结束时间, 未结束时为零值
func (g *Game) FinishedAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.finishedAt
}

// IsArchived 是否已归档
func (g *Game) IsArchived() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.archived
}

// MarkArchived 标记为已归档
func (g *Game) MarkArchived() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.archived = true
}
