package game

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/internal/game/mahjong/fzmahjong"
)

// ServiceOption 服务选项
type ServiceOption func(*GameService)

// WithPresets 可选的规则, 会与内置的福州麻将合并
func WithPresets(presets map[string]core.Rules) ServiceOption {
	return func(s *GameService) {
		for name, rules := range presets {
			s.presets[name] = rules
		}
	}
}

// WithDefaultPreset 未指定规则时使用的规则名
func WithDefaultPreset(name string) ServiceOption {
	return func(s *GameService) {
		if name != "" {
			s.defaultPreset = name
		}
	}
}

// WithTimer 出牌与抢牌超时使用的定时器
func WithTimer(timer fzmahjong.Timer) ServiceOption {
	return func(s *GameService) {
		s.timer = timer
	}
}

// WithNotifiers 事件接收方, 按顺序调用
func WithNotifiers(notifiers ...fzmahjong.Notifier) ServiceOption {
	return func(s *GameService) {
		s.sinks = append(s.sinks, notifiers...)
	}
}

// WithIDGenerator 替换牌局ID生成方式
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *GameService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// StartRequest 开局请求
type StartRequest struct {
	Players []string // 按座位顺序, 0 号为庄家
	Preset  string   // 规则名, 为空时使用默认规则
	Seed    *int64   // 指定洗牌种子, 用于复盘
}

// GameService 麻将游戏服务
type GameService struct {
	manager       *GameManager
	presets       map[string]core.Rules
	defaultPreset string
	timer         fzmahjong.Timer
	sinks         fzmahjong.MultiNotifier
	newID         func() string
	logger        *zap.Logger
}

// NewGameService 创建游戏服务
func NewGameService(manager *GameManager, logger *zap.Logger, opts ...ServiceOption) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	fuzhou := core.FuzhouRules()
	s := &GameService{
		manager:       manager,
		presets:       map[string]core.Rules{fuzhou.Name: fuzhou},
		defaultPreset: fuzhou.Name,
		newID:         uuid.NewString,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Presets 可用的规则名
func (s *GameService) Presets() []string {
	names := make([]string, 0, len(s.presets))
	for name := range s.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartGame 创建并开始一局游戏, 返回开局后的公开快照
func (s *GameService) StartGame(ctx context.Context, req StartRequest) (fzmahjong.PublicSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}

	preset := req.Preset
	if preset == "" {
		preset = s.defaultPreset
	}
	rules, ok := s.presets[preset]
	if !ok {
		return fzmahjong.PublicSnapshot{}, ErrUnknownPreset.WithContext("preset", preset)
	}
	for seat, name := range req.Players {
		if strings.TrimSpace(name) == "" {
			return fzmahjong.PublicSnapshot{}, core.ErrInvalidPlayers.WithMessage("玩家名不能为空").WithContext("seat", seat)
		}
	}

	gameID := s.newID()
	logger := s.logger.With(zap.String("gameId", gameID))
	opts := []fzmahjong.Option{
		fzmahjong.WithLogger(logger),
		fzmahjong.WithNotifier(fzmahjong.NotifierFunc(s.notify)),
	}
	if s.timer != nil {
		opts = append(opts, fzmahjong.WithTimer(s.timer))
	}
	if req.Seed != nil {
		opts = append(opts, fzmahjong.WithDeck(core.NewSeededDeckGenerator(*req.Seed)))
	}

	engine, err := fzmahjong.NewEngine(gameID, rules, req.Players, opts...)
	if err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}
	game := NewGame(engine, preset)
	if err := s.manager.Add(game); err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}
	if err := engine.Start(); err != nil {
		s.manager.Remove(gameID)
		return fzmahjong.PublicSnapshot{}, err
	}

	logger.Info("创建牌局", zap.String("preset", preset), zap.Strings("players", req.Players))
	return engine.PublicState(), nil
}

// SubmitAction 提交玩家操作
func (s *GameService) SubmitAction(ctx context.Context, gameID string, seat int, action core.Action) error {
	game, err := s.lookup(ctx, gameID)
	if err != nil {
		return err
	}
	game.Touch()
	return game.Engine().Submit(seat, action)
}

// PublicState 牌局公开快照
func (s *GameService) PublicState(ctx context.Context, gameID string) (fzmahjong.PublicSnapshot, error) {
	game, err := s.lookup(ctx, gameID)
	if err != nil {
		return fzmahjong.PublicSnapshot{}, err
	}
	return game.Engine().PublicState(), nil
}

// PrivateState 座位的私有快照
func (s *GameService) PrivateState(ctx context.Context, gameID string, seat int) (fzmahjong.PrivateSnapshot, error) {
	game, err := s.lookup(ctx, gameID)
	if err != nil {
		return fzmahjong.PrivateSnapshot{}, err
	}
	return game.Engine().PrivateState(seat)
}

// Result 牌局结果
func (s *GameService) Result(ctx context.Context, gameID string) (fzmahjong.Result, error) {
	game, err := s.lookup(ctx, gameID)
	if err != nil {
		return fzmahjong.Result{}, err
	}
	result, ok := game.Engine().Result()
	if !ok {
		return fzmahjong.Result{}, core.ErrGameNotPlaying.WithMessage("牌局尚未结束").WithContext("gameId", gameID)
	}
	return result, nil
}

func (s *GameService) lookup(ctx context.Context, gameID string) (*Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	game, ok := s.manager.Get(gameID)
	if !ok {
		return nil, core.ErrGameNotFound.WithContext("gameId", gameID)
	}
	return game, nil
}

// notify 记录结束时间后转发给所有接收方
func (s *GameService) notify(ev fzmahjong.Event) {
	if ev.Type == fzmahjong.EventGameFinished {
		if game, ok := s.manager.Get(ev.GameID); ok {
			game.MarkFinished(time.Now())
		}
	}
	s.sinks.Notify(ev)
}
