package model

import (
	"encoding/json"
	"time"
)

// GameRecord 已结束牌局的归档记录
type GameRecord struct {
	Id         int64           `json:"id"`
	GameId     string          `json:"gameId"`
	Preset     string          `json:"preset"`
	Players    []string        `json:"players"`
	Winner     *int            `json:"winner,omitempty"` // 荒庄时为空
	WinnerName string          `json:"winnerName"`
	Reason     string          `json:"reason"`
	Result     json.RawMessage `json:"result"` // 完整结果 JSON
	CreatedAt  time.Time       `json:"createdAt"`
	FinishedAt time.Time       `json:"finishedAt"`
}
