package game

import "sudooom.im.mahjong/internal/game/mahjong/core"

// 服务层错误, 与引擎错误共用 GameError 以便按错误码返回给调用方
var (
	// ErrUnknownPreset 未知的规则名
	ErrUnknownPreset = core.NewGameError("UNKNOWN_PRESET", "未知的规则")

	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = core.NewGameError("MANAGER_CLOSED", "游戏管理器已关闭")

	// ErrDuplicateGame 牌局ID重复
	ErrDuplicateGame = core.NewGameError("DUPLICATE_GAME", "牌局已存在")
)
