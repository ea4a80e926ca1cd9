package core

import (
	"errors"
	"fmt"
	"maps"
)

// GameError 游戏错误类型
type GameError struct {
	Code    string         // 错误代码
	Message string         // 错误消息
	Cause   error          // 原因错误
	Context map[string]any // 错误上下文
}

func (e *GameError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GameError) Unwrap() error {
	return e.Cause
}

// Is 按错误代码比较, 使带上下文的副本仍能匹配哨兵错误
func (e *GameError) Is(target error) bool {
	var other *GameError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewGameError 创建游戏错误
func NewGameError(code, message string) *GameError {
	return &GameError{
		Code:    code,
		Message: message,
	}
}

// clone 复制错误, 哨兵错误本身不会被修改
func (e *GameError) clone() *GameError {
	c := *e
	c.Context = maps.Clone(e.Context)
	if c.Context == nil {
		c.Context = make(map[string]any)
	}
	return &c
}

// WithCause 返回带原因错误的副本
func (e *GameError) WithCause(cause error) *GameError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithContext 返回带上下文信息的副本
func (e *GameError) WithContext(key string, value any) *GameError {
	c := e.clone()
	c.Context[key] = value
	return c
}

// WithMessage 返回替换了提示消息的副本
func (e *GameError) WithMessage(message string) *GameError {
	c := e.clone()
	c.Message = message
	return c
}

// 玩家动作相关错误, 只回报给提交动作的座位, 不改变牌局状态
var (
	ErrOutOfTurn       = NewGameError("OUT_OF_TURN", "现在不是你的回合")
	ErrAlreadyActed    = NewGameError("ALREADY_ACTED", "你已经提交过操作了")
	ErrInvalidClaim    = NewGameError("INVALID_CLAIM", "你当前不能执行此操作")
	ErrMalformedAction = NewGameError("MALFORMED_ACTION", "无效的操作")
)

// 牌与规则相关错误
var (
	ErrInvalidTile  = NewGameError("INVALID_TILE", "无效的麻将牌")
	ErrInvalidRules = NewGameError("INVALID_RULES", "无效的规则配置")
	ErrWallEmpty    = NewGameError("WALL_EMPTY", "牌墙已空")
)

// 牌局相关错误
var (
	ErrGameNotFound   = NewGameError("GAME_NOT_FOUND", "牌局不存在")
	ErrGameNotPlaying = NewGameError("GAME_NOT_PLAYING", "牌局未在进行中")
	ErrInvalidPlayers = NewGameError("INVALID_PLAYERS", "玩家人数不正确")
)

// ErrorCode 取出错误代码, 非 GameError 返回空字符串
func ErrorCode(err error) string {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Code
	}
	return ""
}
