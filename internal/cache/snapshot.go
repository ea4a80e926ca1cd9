package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
)

// SnapshotCache 在 Redis 中保存每局最新的公开快照
//
// 作为 fzmahjong.Notifier 接入引擎, 只读的查询方不需要访问引擎。
type SnapshotCache struct {
	redisClient redis.Cmdable
	ttl         time.Duration
	timeout     time.Duration
	logger      *zap.Logger
}

// NewSnapshotCache 创建快照缓存
func NewSnapshotCache(redisClient redis.Cmdable, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{
		redisClient: redisClient,
		ttl:         ttl,
		timeout:     time.Second,
		logger:      logger,
	}
}

// Notify 实现 fzmahjong.Notifier
func (c *SnapshotCache) Notify(ev fzmahjong.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var err error
	switch ev.Type {
	case fzmahjong.EventGameInitialized:
		// 每个座位各发一次, 只处理庄家
		if ev.Seat == 0 {
			err = c.redisClient.SAdd(ctx, ActiveGamesKey, ev.GameID).Err()
		}
	case fzmahjong.EventPublicStateChanged:
		if ev.Public != nil {
			err = c.store(ctx, *ev.Public)
		}
	case fzmahjong.EventGameFinished:
		if ev.Result != nil {
			err = c.store(ctx, ev.Result.Final)
		}
		if remErr := c.redisClient.SRem(ctx, ActiveGamesKey, ev.GameID).Err(); remErr != nil {
			err = errors.Join(err, remErr)
		}
	}
	if err != nil {
		c.logger.Warn("更新快照缓存失败", zap.String("gameId", ev.GameID), zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func (c *SnapshotCache) store(ctx context.Context, snap fzmahjong.PublicSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, BuildPublicKey(snap.GameID), data, c.ttl).Err()
}

// PublicState 读取缓存的公开快照, 可作为观战的状态来源
func (c *SnapshotCache) PublicState(ctx context.Context, gameID string) (fzmahjong.PublicSnapshot, error) {
	data, err := c.redisClient.Get(ctx, BuildPublicKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fzmahjong.PublicSnapshot{}, core.ErrGameNotFound.WithContext("gameId", gameID)
	}
	if err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}

	var snap fzmahjong.PublicSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}
	return snap, nil
}

// ActiveGames 进行中的牌局ID
func (c *SnapshotCache) ActiveGames(ctx context.Context) ([]string, error) {
	return c.redisClient.SMembers(ctx, ActiveGamesKey).Result()
}
