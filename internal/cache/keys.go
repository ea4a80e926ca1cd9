package cache

import "time"

const (
	// GameKeyPrefix 牌局 Redis Key 前缀
	GameKeyPrefix = "mahjong:game:"

	// ActiveGamesKey 进行中的牌局ID集合
	ActiveGamesKey = "mahjong:games:active"

	// DefaultSnapshotTTL 快照默认 TTL
	DefaultSnapshotTTL = time.Hour
)

// BuildPublicKey 构建公开快照 Key
// Key: mahjong:game:{gameId}:public
func BuildPublicKey(gameID string) string {
	return GameKeyPrefix + gameID + ":public"
}
