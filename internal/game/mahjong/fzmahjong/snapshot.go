package fzmahjong

import (
	"sudooom.im.mahjong/internal/game/mahjong/core"
)

// PlayerPublic 玩家公开信息
type PlayerPublic struct {
	Seat           int         `json:"seat"`
	Name           string      `json:"name"`
	Melds          []core.Meld `json:"melds"`
	ConcealedCount int         `json:"concealedCount"`
	HasDrawn       bool        `json:"hasDrawn"`
	Discards       []core.Tile `json:"discards"`
}

// PublicSnapshot 所有人可见的牌局快照
type PublicSnapshot struct {
	GameID        string          `json:"gameId"`
	RulesName     string          `json:"rulesName"`
	Status        core.GameStatus `json:"status"`
	Phase         Phase           `json:"phase"`
	ActiveSeat    int             `json:"activeSeat"`
	TurnSeq       uint64          `json:"turnSeq"`
	WallRemaining int             `json:"wallRemaining"`
	Players       []PlayerPublic  `json:"players"`
	LastDiscard   *DiscardInfo    `json:"lastDiscard,omitempty"`
	Winner        *int            `json:"winner,omitempty"`
	WinningHand   []core.Tile     `json:"winningHand,omitempty"`
	FinishReason  FinishReason    `json:"finishReason,omitempty"`
}

// PrivateSnapshot 单个座位可见的快照
type PrivateSnapshot struct {
	Public    PublicSnapshot    `json:"public"`
	Seat      int               `json:"seat"`
	Concealed []core.Tile       `json:"concealed"`
	Drawn     *core.Tile        `json:"drawn,omitempty"`
	Wildcard  *core.Tile        `json:"wildcard,omitempty"`
	Menu      []core.ActionType `json:"menu"`
	Chows     [][2]core.Tile    `json:"chows,omitempty"`
}

// Result 牌局结果
type Result struct {
	GameID      string         `json:"gameId"`
	Winner      *int           `json:"winner,omitempty"`
	WinnerName  string         `json:"winnerName,omitempty"`
	WinningHand []core.Tile    `json:"winningHand,omitempty"`
	Melds       []core.Meld    `json:"melds,omitempty"`
	Reason      FinishReason   `json:"reason"`
	Final       PublicSnapshot `json:"final"`
}

// publicSnapshot 生成公开快照, 所有切片均为副本
func (t *Table) publicSnapshot() PublicSnapshot {
	snap := PublicSnapshot{
		GameID:        t.ID,
		RulesName:     t.Rules.Name,
		Status:        t.Status,
		Phase:         t.Phase,
		ActiveSeat:    t.Active,
		TurnSeq:       t.TurnSeq,
		WallRemaining: len(t.Wall),
		Players:       make([]PlayerPublic, len(t.Players)),
		FinishReason:  t.Reason,
	}
	for i, p := range t.Players {
		hand := p.Hand.Clone()
		snap.Players[i] = PlayerPublic{
			Seat:           p.Seat,
			Name:           p.Name,
			Melds:          hand.Melds,
			ConcealedCount: hand.ConcealedCount(),
			HasDrawn:       hand.Drawn != nil,
			Discards:       hand.Discards,
		}
	}
	if t.LastDiscard != nil {
		d := *t.LastDiscard
		snap.LastDiscard = &d
	}
	if t.Winner != nil {
		w := *t.Winner
		snap.Winner = &w
		snap.WinningHand = core.CloneTiles(t.WinningHand)
	}
	return snap
}

// privateSnapshot 生成指定座位的私有快照
func (t *Table) privateSnapshot(seat int) PrivateSnapshot {
	hand := t.Players[seat].Hand.Clone()
	snap := PrivateSnapshot{
		Public:    t.publicSnapshot(),
		Seat:      seat,
		Concealed: hand.Concealed,
		Drawn:     hand.Drawn,
		Menu:      []core.ActionType{},
	}
	if t.Wildcard != nil {
		w := *t.Wildcard
		snap.Wildcard = &w
	}
	if t.Status != core.StatusPlaying {
		return snap
	}

	switch t.Phase {
	case PhaseDiscard:
		if seat == t.Active {
			snap.Menu = append(snap.Menu, core.ActionDiscard)
			if t.CanSelfWin {
				snap.Menu = append(snap.Menu, core.ActionWin)
			}
		}
	case PhaseClaim:
		if t.Claims == nil || t.Claims.Submitted(seat) {
			break
		}
		if e, ok := t.Claims.Eligible(seat); ok {
			snap.Menu = append(snap.Menu, e.Types()...)
			snap.Menu = append(snap.Menu, core.ActionPass)
			snap.Chows = append(snap.Chows, e.Chows...)
		}
	}
	return snap
}

// result 生成牌局结果
func (t *Table) result() Result {
	r := Result{
		GameID: t.ID,
		Reason: t.Reason,
		Final:  t.publicSnapshot(),
	}
	if t.Winner != nil {
		w := *t.Winner
		r.Winner = &w
		r.WinnerName = t.Players[w].Name
		r.WinningHand = core.CloneTiles(t.WinningHand)
		r.Melds = t.Players[w].Hand.Clone().Melds
	}
	return r
}
