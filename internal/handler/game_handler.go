package handler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game"
	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
	"sudooom.im.mahjong/pkg/proto"
)

// CodeInternal 非 GameError 的错误码
const CodeInternal = "INTERNAL"

// GameService 处理器依赖的游戏服务
type GameService interface {
	StartGame(ctx context.Context, req game.StartRequest) (fzmahjong.PublicSnapshot, error)
	SubmitAction(ctx context.Context, gameID string, seat int, action core.Action) error
	PublicState(ctx context.Context, gameID string) (fzmahjong.PublicSnapshot, error)
	PrivateState(ctx context.Context, gameID string, seat int) (fzmahjong.PrivateSnapshot, error)
}

// GameHandler 游戏请求处理器
type GameHandler struct {
	gameService GameService
	logger      *zap.Logger
}

// NewGameHandler 创建游戏请求处理器
func NewGameHandler(gameService GameService, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{
		gameService: gameService,
		logger:      logger,
	}
}

// HandleStart 开局
func (h *GameHandler) HandleStart(ctx context.Context, req *proto.StartGameRequest) *proto.Reply {
	h.logger.Info("收到开局请求", zap.String("reqId", req.ReqId), zap.Strings("players", req.Players), zap.String("preset", req.Preset))

	pub, err := h.gameService.StartGame(ctx, game.StartRequest{
		Players: req.Players,
		Preset:  req.Preset,
		Seed:    req.Seed,
	})
	if err != nil {
		return h.fail(req.ReqId, "", err)
	}
	return h.ok(req.ReqId, pub.GameID, pub)
}

// HandleAction 玩家操作, 成功时返回该座位最新的私有快照
func (h *GameHandler) HandleAction(ctx context.Context, req *proto.ActionRequest) *proto.Reply {
	h.logger.Debug("收到玩家操作",
		zap.String("reqId", req.ReqId),
		zap.String("gameId", req.GameId),
		zap.Int("seat", req.Seat),
		zap.String("action", req.Action))

	action, err := ParseAction(req)
	if err != nil {
		return h.fail(req.ReqId, req.GameId, err)
	}
	if err := h.gameService.SubmitAction(ctx, req.GameId, req.Seat, action); err != nil {
		return h.fail(req.ReqId, req.GameId, err)
	}
	priv, err := h.gameService.PrivateState(ctx, req.GameId, req.Seat)
	if err != nil {
		return h.fail(req.ReqId, req.GameId, err)
	}
	return h.ok(req.ReqId, req.GameId, priv)
}

// HandleState 查询快照
func (h *GameHandler) HandleState(ctx context.Context, req *proto.StateRequest) *proto.Reply {
	if req.Seat == nil {
		pub, err := h.gameService.PublicState(ctx, req.GameId)
		if err != nil {
			return h.fail(req.ReqId, req.GameId, err)
		}
		return h.ok(req.ReqId, req.GameId, pub)
	}
	priv, err := h.gameService.PrivateState(ctx, req.GameId, *req.Seat)
	if err != nil {
		return h.fail(req.ReqId, req.GameId, err)
	}
	return h.ok(req.ReqId, req.GameId, priv)
}

// ParseAction 把请求转换为引擎动作
func ParseAction(req *proto.ActionRequest) (core.Action, error) {
	typ, err := core.ParseActionType(req.Action)
	if err != nil {
		return core.Action{}, err
	}
	action := core.Action{Type: typ, TileIndex: req.TileIndex}
	if len(req.ChowPair) > 0 {
		action.ChowPair = make([]core.Tile, 0, len(req.ChowPair))
		for _, code := range req.ChowPair {
			tile, err := core.ParseTile(code)
			if err != nil {
				return core.Action{}, core.ErrMalformedAction.WithCause(err).WithContext("chowPair", req.ChowPair)
			}
			action.ChowPair = append(action.ChowPair, tile)
		}
	}
	return action, nil
}

func (h *GameHandler) ok(reqID, gameID string, state any) *proto.Reply {
	reply := &proto.Reply{ReqId: reqID, Code: proto.CodeOK, GameId: gameID}
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("序列化快照失败", zap.String("gameId", gameID), zap.Error(err))
		return h.fail(reqID, gameID, err)
	}
	reply.State = data
	return reply
}

func (h *GameHandler) fail(reqID, gameID string, err error) *proto.Reply {
	reply := &proto.Reply{ReqId: reqID, GameId: gameID}
	var gameErr *core.GameError
	if errors.As(err, &gameErr) {
		reply.Code = gameErr.Code
		reply.Message = gameErr.Message
		h.logger.Debug("请求被拒绝", zap.String("reqId", reqID), zap.String("code", gameErr.Code), zap.Error(err))
		return reply
	}
	reply.Code = CodeInternal
	reply.Message = "服务器内部错误"
	h.logger.Error("处理请求失败", zap.String("reqId", reqID), zap.String("gameId", gameID), zap.Error(err))
	return reply
}
