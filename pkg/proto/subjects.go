package proto

import "fmt"

// NATS Subject 常量定义
const (
	// SubjectStart 开局请求 (request/reply)
	SubjectStart = "mahjong.start"

	// SubjectAction 玩家操作 (request/reply)
	SubjectAction = "mahjong.action"

	// SubjectState 快照查询 (request/reply)
	SubjectState = "mahjong.state"

	// SubjectGamePrefix 牌局事件前缀
	// 公开事件: mahjong.game.{game_id}.public
	// 座位事件: mahjong.game.{game_id}.seat.{seat}
	SubjectGamePrefix = "mahjong.game."

	// QueueGroupMahjong 默认队列组名称
	QueueGroupMahjong = "mahjong"
)

// BuildPublicSubject 构建牌局公开事件 Subject
func BuildPublicSubject(gameID string) string {
	return SubjectGamePrefix + gameID + ".public"
}

// BuildSeatSubject 构建座位事件 Subject
func BuildSeatSubject(gameID string, seat int) string {
	return fmt.Sprintf("%s%s.seat.%d", SubjectGamePrefix, gameID, seat)
}
