package fzmahjong

import (
	"sort"

	"sudooom.im.mahjong/internal/game/mahjong/core"
)

// Eligibility 某个座位对当前打出的牌可以执行的操作
type Eligibility struct {
	Win   bool           `json:"win"`
	Pong  bool           `json:"pong"`
	Kong  bool           `json:"kong"`
	Chows [][2]core.Tile `json:"chows,omitempty"`
}

// Any 是否有任何可执行的操作
func (e Eligibility) Any() bool {
	return e.Win || e.Pong || e.Kong || len(e.Chows) > 0
}

// Types 可执行的操作类型, 按优先级从高到低排列
func (e Eligibility) Types() []core.ActionType {
	types := make([]core.ActionType, 0, 4)
	if e.Win {
		types = append(types, core.ActionWin)
	}
	if e.Kong {
		types = append(types, core.ActionKong)
	}
	if e.Pong {
		types = append(types, core.ActionPong)
	}
	if len(e.Chows) > 0 {
		types = append(types, core.ActionChow)
	}
	return types
}

// allows 检查动作是否在可执行范围内, 吃牌时返回规范化后的组合
func (e Eligibility) allows(action core.Action) ([2]core.Tile, error) {
	var pair [2]core.Tile
	switch action.Type {
	case core.ActionPass:
		return pair, nil
	case core.ActionWin:
		if e.Win {
			return pair, nil
		}
	case core.ActionKong:
		if e.Kong {
			return pair, nil
		}
	case core.ActionPong:
		if e.Pong {
			return pair, nil
		}
	case core.ActionChow:
		if len(action.ChowPair) != 2 {
			return pair, core.ErrMalformedAction.WithMessage("吃牌需要指定两张牌")
		}
		pair = [2]core.Tile{action.ChowPair[0], action.ChowPair[1]}
		opts := core.ClaimOptions{Chows: e.Chows}
		if opts.HasChow(pair) {
			if pair[0].Order() > pair[1].Order() {
				pair[0], pair[1] = pair[1], pair[0]
			}
			return pair, nil
		}
		return pair, core.ErrInvalidClaim.WithMessage("无效的吃牌组合").WithContext("pair", pair)
	default:
		return pair, core.ErrMalformedAction.WithContext("action", action.Type)
	}
	return pair, core.ErrInvalidClaim.WithContext("action", action.Type)
}

// Claim 一个座位提交的响应
type Claim struct {
	Seat     int             `json:"seat"`
	Type     core.ActionType `json:"type"`
	ChowPair [2]core.Tile    `json:"chowPair"`
}

// ClaimWindow 一次出牌后的抢牌窗口
//
// 每个有资格的座位最多提交一次。结算只看优先级和与出牌者的距离, 与提交先后无关。
type ClaimWindow struct {
	Seq       uint64    // 窗口对应的回合序号
	Discarder int       // 出牌座位
	Tile      core.Tile // 打出的牌

	seats     int
	eligible  map[int]Eligibility
	submitted map[int]Claim
}

// NewClaimWindow 创建抢牌窗口
func NewClaimWindow(seq uint64, discarder int, tile core.Tile, seats int, eligible map[int]Eligibility) *ClaimWindow {
	w := &ClaimWindow{
		Seq:       seq,
		Discarder: discarder,
		Tile:      tile,
		seats:     seats,
		eligible:  make(map[int]Eligibility, len(eligible)),
		submitted: make(map[int]Claim),
	}
	for seat, e := range eligible {
		if seat != discarder && e.Any() {
			w.eligible[seat] = e
		}
	}
	return w
}

// Empty 没有任何座位可以响应
func (w *ClaimWindow) Empty() bool {
	return len(w.eligible) == 0
}

// Eligible 座位当前可以执行的操作
func (w *ClaimWindow) Eligible(seat int) (Eligibility, bool) {
	e, ok := w.eligible[seat]
	return e, ok
}

// Submitted 座位是否已提交
func (w *ClaimWindow) Submitted(seat int) bool {
	_, ok := w.submitted[seat]
	return ok
}

// Submit 提交响应
func (w *ClaimWindow) Submit(seat int, action core.Action) error {
	e, ok := w.eligible[seat]
	if !ok {
		return core.ErrInvalidClaim.WithContext("seat", seat).WithContext("action", action.Type)
	}
	if w.Submitted(seat) {
		return core.ErrAlreadyActed.WithContext("seat", seat)
	}
	pair, err := e.allows(action)
	if err != nil {
		return err
	}
	w.submitted[seat] = Claim{Seat: seat, Type: action.Type, ChowPair: pair}
	return nil
}

// Complete 所有有资格的座位都已提交
func (w *ClaimWindow) Complete() bool {
	return len(w.submitted) >= len(w.eligible)
}

// Distance 从出牌者顺时针数到 seat 的步数
func (w *ClaimWindow) Distance(seat int) int {
	return (seat - w.Discarder + w.seats) % w.seats
}

// Resolve 结算: 取优先级最高的响应, 同优先级时离出牌者最近的座位胜出
func (w *ClaimWindow) Resolve() (Claim, bool) {
	var (
		best  Claim
		found bool
	)
	for _, c := range w.submitted {
		p := c.Type.Priority()
		if p == 0 {
			continue
		}
		if !found || p > best.Type.Priority() ||
			(p == best.Type.Priority() && w.Distance(c.Seat) < w.Distance(best.Seat)) {
			best = c
			found = true
		}
	}
	return best, found
}

// PendingClaims 每种操作当前有资格的座位, 座位升序
func (w *ClaimWindow) PendingClaims() map[core.ActionType][]int {
	pending := make(map[core.ActionType][]int)
	for seat, e := range w.eligible {
		for _, t := range e.Types() {
			pending[t] = append(pending[t], seat)
		}
	}
	for _, seats := range pending {
		sort.Ints(seats)
	}
	return pending
}
