package fzmahjong

import (
	"sudooom.im.mahjong/internal/game/mahjong/core"
)

// Phase 进行中的牌局所处的阶段
type Phase int8

const (
	PhaseIdle    Phase = iota // 未开始或已结束
	PhaseDiscard              // 等待当前玩家出牌
	PhaseClaim                // 等待其他玩家吃碰杠胡
)

// String 返回阶段的字符串表示
func (p Phase) String() string {
	switch p {
	case PhaseDiscard:
		return "discard"
	case PhaseClaim:
		return "claim"
	default:
		return "idle"
	}
}

// MarshalText 以字符串形式序列化
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 从字符串反序列化
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "discard":
		*p = PhaseDiscard
	case "claim":
		*p = PhaseClaim
	default:
		*p = PhaseIdle
	}
	return nil
}

// FinishReason 结束原因
type FinishReason string

const (
	FinishSelfDraw      FinishReason = "self_draw"      // 自摸
	FinishDiscardWin    FinishReason = "discard_win"    // 点炮
	FinishWallExhausted FinishReason = "wall_exhausted" // 牌墙已空, 荒庄
	FinishEmptyHand     FinishReason = "empty_hand"     // 吃碰后无牌可打, 荒庄
)

// Player 座位上的玩家
type Player struct {
	Seat int
	Name string
	Hand *core.Hand
}

// DiscardInfo 最近一次出牌
type DiscardInfo struct {
	Tile core.Tile `json:"tile"`
	Seat int       `json:"seat"`
}

// Table 一局游戏的全部状态, 只由 Engine 在持锁时修改
type Table struct {
	ID          string
	Rules       core.Rules
	Players     []*Player
	Wall        []core.Tile
	Active      int
	Status      core.GameStatus
	Phase       Phase
	Wildcard    *core.Tile
	LastDiscard *DiscardInfo
	Winner      *int
	WinningHand []core.Tile
	Reason      FinishReason
	TurnSeq     uint64
	Claims      *ClaimWindow
	CanSelfWin  bool // 当前玩家摸牌后可以自摸
}

// newTable 创建等待开局的牌桌
func newTable(id string, rules core.Rules, names []string) *Table {
	players := make([]*Player, len(names))
	for i, name := range names {
		players[i] = &Player{Seat: i, Name: name, Hand: core.NewHand(nil)}
	}
	return &Table{
		ID:      id,
		Rules:   rules,
		Players: players,
		Status:  core.StatusWaiting,
	}
}

// NextSeat 顺时针下一个座位
func (t *Table) NextSeat(seat int) int {
	return (seat + 1) % len(t.Players)
}

// drawFront 从牌墙头部摸一张牌
func (t *Table) drawFront() (core.Tile, bool) {
	if len(t.Wall) == 0 {
		return core.Tile{}, false
	}
	tile := t.Wall[0]
	t.Wall = t.Wall[1:]
	return tile, true
}

// validSeat 座位是否存在
func (t *Table) validSeat(seat int) bool {
	return seat >= 0 && seat < len(t.Players)
}
