package fzmahjong

import (
	"time"

	"sudooom.im.mahjong/internal/game/mahjong/core"
)

// EventType 事件类型
type EventType string

const (
	EventGameInitialized      EventType = "game_initialized"
	EventPublicStateChanged   EventType = "public_state_changed"
	EventPrivateStateChanged  EventType = "private_state_changed"
	EventTurnTimeoutCountdown EventType = "turn_timeout_countdown"
	EventGameFinished         EventType = "game_finished"
)

// BroadcastSeat 发给所有座位的事件使用的座位号
const BroadcastSeat = -1

// Event 引擎对外发出的事件
type Event struct {
	Type     EventType        `json:"type"`
	GameID   string           `json:"gameId"`
	Seat     int              `json:"seat"`
	Message  string           `json:"message,omitempty"`
	Wildcard *core.Tile       `json:"wildcard,omitempty"`
	Public   *PublicSnapshot  `json:"public,omitempty"`
	Private  *PrivateSnapshot `json:"private,omitempty"`
	Timeout  int              `json:"timeout,omitempty"` // 倒计时秒数
	Result   *Result          `json:"result,omitempty"`
}

// Broadcast 是否发给所有座位
func (e Event) Broadcast() bool {
	return e.Seat == BroadcastSeat
}

// SeatOnly 是否只发给 Seat 对应的玩家
func (e Event) SeatOnly() bool {
	if e.Broadcast() {
		return false
	}
	return e.Type == EventPrivateStateChanged || e.Type == EventGameInitialized
}

// Notifier 事件接收方
//
// Notify 在引擎锁之外按事件产生的顺序调用, 实现方不应阻塞太久。
type Notifier interface {
	Notify(event Event)
}

// NotifierFunc 函数形式的 Notifier
type NotifierFunc func(event Event)

// Notify 实现 Notifier
func (f NotifierFunc) Notify(event Event) {
	f(event)
}

// MultiNotifier 依次转发给多个 Notifier
type MultiNotifier []Notifier

// Notify 实现 Notifier
func (m MultiNotifier) Notify(event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(event)
		}
	}
}

// Timer 可取消的延时任务
//
// fn 必须在调用 AfterFunc 的协程之外执行。
type Timer interface {
	AfterFunc(id string, delay time.Duration, fn func()) error
	Cancel(id string)
}
