package proto

import "encoding/json"

// ============== 请求 (Access -> Mahjong) ==============

// StartGameRequest 开局请求
type StartGameRequest struct {
	ReqId   string   `json:"ReqId"`
	Players []string `json:"Players"`          // 按座位顺序, 0 号为庄家
	Preset  string   `json:"Preset,omitempty"` // 规则名, 为空时使用默认规则
	Seed    *int64   `json:"Seed,omitempty"`   // 洗牌种子, 用于复盘
}

// ActionRequest 玩家操作请求
type ActionRequest struct {
	ReqId     string   `json:"ReqId"`
	GameId    string   `json:"GameId"`
	Seat      int      `json:"Seat"`
	Action    string   `json:"Action"`              // discard / win / pong / kong / chow / pass
	TileIndex *int     `json:"TileIndex,omitempty"` // 出牌序号, 为空时打出新摸的牌
	ChowPair  []string `json:"ChowPair,omitempty"`  // 吃牌时手中的两张牌, 如 ["1t","2t"]
}

// StateRequest 查询快照, Seat 为空时返回公开快照
type StateRequest struct {
	ReqId  string `json:"ReqId"`
	GameId string `json:"GameId"`
	Seat   *int   `json:"Seat,omitempty"`
}

// ============== 应答 (Mahjong -> Access) ==============

// Reply 请求应答
type Reply struct {
	ReqId   string          `json:"ReqId"`
	Code    string          `json:"Code"` // 成功时为 OK
	Message string          `json:"Message,omitempty"`
	GameId  string          `json:"GameId,omitempty"`
	State   json.RawMessage `json:"State,omitempty"` // 公开或私有快照
}

// CodeOK 成功
const CodeOK = "OK"

// OK 是否成功
func (r *Reply) OK() bool {
	return r.Code == CodeOK
}
