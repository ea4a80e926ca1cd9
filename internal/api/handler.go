package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
	"sudooom.im.mahjong/internal/model"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// SnapshotReader 缓存中的牌局状态
type SnapshotReader interface {
	PublicState(ctx context.Context, gameID string) (fzmahjong.PublicSnapshot, error)
	ActiveGames(ctx context.Context) ([]string, error)
}

// HistoryReader 已归档的牌局
type HistoryReader interface {
	FindByGameID(ctx context.Context, gameID string) (*model.GameRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*model.GameRecord, error)
}

// PresetLister 可用的规则名
type PresetLister interface {
	Presets() []string
}

// QueryHandler 只读查询接口
type QueryHandler struct {
	snapshots SnapshotReader
	history   HistoryReader
	presets   PresetLister
	logger    *zap.Logger
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(snapshots SnapshotReader, history HistoryReader, presets PresetLister, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{
		snapshots: snapshots,
		history:   history,
		presets:   presets,
		logger:    logger,
	}
}

// ListPresets 规则列表
func (h *QueryHandler) ListPresets(c *gin.Context) {
	Success(c, h.presets.Presets())
}

// ListActiveGames 进行中的牌局
func (h *QueryHandler) ListActiveGames(c *gin.Context) {
	ids, err := h.snapshots.ActiveGames(c.Request.Context())
	if err != nil {
		h.logger.Error("查询进行中的牌局失败", zap.Error(err))
		ErrorFromGameError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	Success(c, ids)
}

// GetGame 牌局公开状态
func (h *QueryHandler) GetGame(c *gin.Context) {
	snap, err := h.snapshots.PublicState(c.Request.Context(), c.Param("id"))
	if err != nil {
		ErrorFromGameError(c, err)
		return
	}
	Success(c, snap)
}

// ListHistory 最近结束的牌局, limit 默认 20, 最多 100
func (h *QueryHandler) ListHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ErrorWithMsg(c, CodeInvalidParams, "limit 必须是正整数")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("查询历史牌局失败", zap.Error(err))
		ErrorFromGameError(c, err)
		return
	}
	if records == nil {
		records = []*model.GameRecord{}
	}
	Success(c, records)
}

// GetHistory 已归档的牌局
func (h *QueryHandler) GetHistory(c *gin.Context) {
	record, err := h.history.FindByGameID(c.Request.Context(), c.Param("id"))
	if err != nil {
		ErrorFromGameError(c, err)
		return
	}
	Success(c, record)
}
