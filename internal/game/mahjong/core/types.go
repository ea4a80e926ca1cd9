package core

import (
	"fmt"
	"strings"
)

// TileSuit 牌的花色
type TileSuit int8

const (
	TileSuitTong   TileSuit = iota // 筒
	TileSuitTiao                   // 条
	TileSuitWan                    // 万
	TileSuitWind                   // 风 (东南西北)
	TileSuitDragon                 // 箭牌 (白发中)
)

// String 返回花色的字符串表示
func (s TileSuit) String() string {
	switch s {
	case TileSuitTong:
		return "筒"
	case TileSuitTiao:
		return "条"
	case TileSuitWan:
		return "万"
	case TileSuitWind:
		return "风"
	case TileSuitDragon:
		return "箭"
	default:
		return "未知"
	}
}

// IsHonor 是否字牌
func (s TileSuit) IsHonor() bool {
	return s == TileSuitWind || s == TileSuitDragon
}

// suitCodes 数牌花色代码, 与牌编码的最后一位一致
var suitCodes = map[TileSuit]byte{
	TileSuitTong: 'o',
	TileSuitTiao: 't',
	TileSuitWan:  'w',
}

// honorCodes 字牌编码 (风牌:1东2南3西4北, 箭牌:1白2发3中)
var honorCodes = map[TileSuit][]string{
	TileSuitWind:   {"e", "s", "w", "n"},
	TileSuitDragon: {"b", "f", "z"},
}

// Tile 麻将牌 (值对象, 可直接作为 map key)
//
// JSON 中以牌编码表示。
type Tile struct {
	Suit  TileSuit // 花色
	Value int8     // 值 (数牌 1-9, 风牌 1-4, 箭牌 1-3)
}

// NewTile 创建麻将牌(带验证)
func NewTile(suit TileSuit, value int8) (Tile, error) {
	t := Tile{Suit: suit, Value: value}
	if !t.Valid() {
		return Tile{}, ErrInvalidTile.WithContext("suit", suit).WithContext("value", value)
	}
	return t, nil
}

// Valid 判断牌是否合法
func (t Tile) Valid() bool {
	switch t.Suit {
	case TileSuitTong, TileSuitTiao, TileSuitWan:
		return t.Value >= 1 && t.Value <= 9
	case TileSuitWind:
		return t.Value >= 1 && t.Value <= 4
	case TileSuitDragon:
		return t.Value >= 1 && t.Value <= 3
	default:
		return false
	}
}

// Order 排序值
//
// 筒 2-10, 条 12-20, 万 22-30, 风 32/34/36/38, 箭 42/44/46。
// 花色之间、字牌之间都留有空位, 排序值相差 1 只可能出现在同一花色内。
func (t Tile) Order() int {
	switch t.Suit {
	case TileSuitTong:
		return 1 + int(t.Value)
	case TileSuitTiao:
		return 11 + int(t.Value)
	case TileSuitWan:
		return 21 + int(t.Value)
	case TileSuitWind:
		return 30 + 2*int(t.Value)
	case TileSuitDragon:
		return 40 + 2*int(t.Value)
	default:
		return -1
	}
}

// IsHonor 是否字牌
func (t Tile) IsHonor() bool {
	return t.Suit.IsHonor()
}

// Code 返回牌编码, 例如 "1o" "9w" "e" "z"
func (t Tile) Code() string {
	if code, ok := suitCodes[t.Suit]; ok {
		return fmt.Sprintf("%d%c", t.Value, code)
	}
	if codes, ok := honorCodes[t.Suit]; ok && t.Value >= 1 && int(t.Value) <= len(codes) {
		return codes[t.Value-1]
	}
	return "?"
}

// String 返回牌的字符串表示
func (t Tile) String() string {
	return t.Code()
}

// MarshalText 以牌编码序列化
func (t Tile) MarshalText() ([]byte, error) {
	return []byte(t.Code()), nil
}

// UnmarshalText 从牌编码反序列化
func (t *Tile) UnmarshalText(text []byte) error {
	parsed, err := ParseTile(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Offset 同花色内偏移 n 位的牌, 越界或字牌时返回 false
func (t Tile) Offset(n int) (Tile, bool) {
	if t.IsHonor() {
		return Tile{}, false
	}
	v := int(t.Value) + n
	if v < 1 || v > 9 {
		return Tile{}, false
	}
	return Tile{Suit: t.Suit, Value: int8(v)}, true
}

// ParseTile 解析牌编码
func ParseTile(code string) (Tile, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	for suit, codes := range honorCodes {
		for i, c := range codes {
			if c == code {
				return Tile{Suit: suit, Value: int8(i + 1)}, nil
			}
		}
	}
	if len(code) == 2 && code[0] >= '1' && code[0] <= '9' {
		for suit, c := range suitCodes {
			if code[1] == c {
				return Tile{Suit: suit, Value: int8(code[0] - '0')}, nil
			}
		}
	}
	return Tile{}, ErrInvalidTile.WithContext("code", code)
}

// MustParseTiles 解析以空格分隔的牌编码, 解析失败时 panic, 仅用于预设与测试
func MustParseTiles(codes string) []Tile {
	fields := strings.Fields(codes)
	tiles := make([]Tile, 0, len(fields))
	for _, f := range fields {
		t, err := ParseTile(f)
		if err != nil {
			panic(err)
		}
		tiles = append(tiles, t)
	}
	return tiles
}

// AllTileKinds 返回全部 34 种牌, 按排序值升序
func AllTileKinds() []Tile {
	kinds := make([]Tile, 0, 34)
	for _, suit := range []TileSuit{TileSuitTong, TileSuitTiao, TileSuitWan} {
		for v := int8(1); v <= 9; v++ {
			kinds = append(kinds, Tile{Suit: suit, Value: v})
		}
	}
	for v := int8(1); v <= 4; v++ {
		kinds = append(kinds, Tile{Suit: TileSuitWind, Value: v})
	}
	for v := int8(1); v <= 3; v++ {
		kinds = append(kinds, Tile{Suit: TileSuitDragon, Value: v})
	}
	return kinds
}

// MeldType 明牌组合类型
type MeldType int8

const (
	MeldTypePong MeldType = iota // 碰 (3张相同)
	MeldTypeKong                 // 杠 (4张相同)
	MeldTypeChow                 // 吃 (3张顺子)
)

// String 返回组合类型的字符串表示
func (m MeldType) String() string {
	switch m {
	case MeldTypePong:
		return "pong"
	case MeldTypeKong:
		return "kong"
	case MeldTypeChow:
		return "chow"
	default:
		return "unknown"
	}
}

// Meld 明牌组合
type Meld struct {
	Type     MeldType `json:"type"`     // 组合类型
	Tiles    []Tile   `json:"tiles"`    // 牌 (升序)
	FromSeat int      `json:"fromSeat"` // 被吃碰杠的出牌座位
}

// ActionType 动作类型
type ActionType int8

const (
	ActionDiscard ActionType = iota + 1 // 出牌
	ActionWin                           // 胡
	ActionPong                          // 碰
	ActionKong                          // 杠
	ActionChow                          // 吃
	ActionPass                          // 过
)

// String 返回动作类型的字符串表示
func (a ActionType) String() string {
	switch a {
	case ActionDiscard:
		return "discard"
	case ActionWin:
		return "win"
	case ActionPong:
		return "pong"
	case ActionKong:
		return "kong"
	case ActionChow:
		return "chow"
	case ActionPass:
		return "pass"
	default:
		return "unknown"
	}
}

// Label 动作的中文名称, 用于日志消息
func (a ActionType) Label() string {
	switch a {
	case ActionDiscard:
		return "出牌"
	case ActionWin:
		return "胡"
	case ActionPong:
		return "碰"
	case ActionKong:
		return "杠"
	case ActionChow:
		return "吃"
	case ActionPass:
		return "过"
	default:
		return "未知"
	}
}

// ParseActionType 解析动作名称, 兼容 "hu"
func ParseActionType(name string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "discard":
		return ActionDiscard, nil
	case "win", "hu":
		return ActionWin, nil
	case "pong":
		return ActionPong, nil
	case "kong":
		return ActionKong, nil
	case "chow":
		return ActionChow, nil
	case "pass":
		return ActionPass, nil
	default:
		return 0, ErrMalformedAction.WithContext("action", name)
	}
}

// Priority 抢牌优先级: 胡 3 > 杠 2 = 碰 2 > 吃 1, 过为 0
func (a ActionType) Priority() int {
	switch a {
	case ActionWin:
		return 3
	case ActionKong, ActionPong:
		return 2
	case ActionChow:
		return 1
	default:
		return 0
	}
}

// Action 玩家动作
type Action struct {
	Type      ActionType `json:"type"`                // 动作类型
	TileIndex *int       `json:"tileIndex,omitempty"` // 出牌序号, 为空时打出新摸的牌
	ChowPair  []Tile     `json:"chowPair,omitempty"`  // 吃牌时手中的两张牌
}

// GameStatus 牌局状态
type GameStatus int8

const (
	StatusWaiting  GameStatus = iota // 等待开局
	StatusPlaying                    // 进行中
	StatusFinished                   // 已结束
)

// String 返回状态的字符串表示
func (s GameStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText 以字符串形式序列化
func (s GameStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText 以字符串形式序列化
func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText 从字符串反序列化
func (a *ActionType) UnmarshalText(text []byte) error {
	parsed, err := ParseActionType(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalText 从字符串反序列化
func (s *GameStatus) UnmarshalText(text []byte) error {
	for _, candidate := range []GameStatus{StatusWaiting, StatusPlaying, StatusFinished} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("未知的牌局状态: %s", text)
}

// MarshalText 以字符串形式序列化
func (m MeldType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText 从字符串反序列化
func (m *MeldType) UnmarshalText(text []byte) error {
	for _, candidate := range []MeldType{MeldTypePong, MeldTypeKong, MeldTypeChow} {
		if candidate.String() == string(text) {
			*m = candidate
			return nil
		}
	}
	return fmt.Errorf("未知的组合类型: %s", text)
}
