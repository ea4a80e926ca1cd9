package fzmahjong

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"sudooom.im.mahjong/internal/game/mahjong/core"
)

// Option 引擎选项
type Option func(*Engine)

// WithTimer 设置延时任务实现, 不设置时没有超时自动出牌
func WithTimer(timer Timer) Option {
	return func(e *Engine) {
		if timer != nil {
			e.timer = timer
		}
	}
}

// WithNotifier 设置事件接收方
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDeck 设置牌墙生成器
func WithDeck(deck *core.DeckGenerator) Option {
	return func(e *Engine) {
		if deck != nil {
			e.deck = deck
		}
	}
}

// WithLayout 使用排好的牌墙与指定的金牌开局, 不再洗牌和翻金 (用于复盘)
func WithLayout(wall []core.Tile, wildcard *core.Tile) Option {
	return func(e *Engine) {
		e.layout = core.CloneTiles(wall)
		if wildcard != nil {
			w := *wildcard
			e.layoutWildcard = &w
		}
	}
}

// Engine 福州麻将回合引擎
//
// 一局游戏一个 Engine, 所有状态修改都在 mu 内串行执行。
// 事件在释放 mu 之后按产生顺序发出, 接收方可以安全地读取快照。
type Engine struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	table          *Table
	eval           *core.Evaluator
	deck           *core.DeckGenerator
	layout         []core.Tile
	layoutWildcard *core.Tile

	timer    Timer
	timers   map[string]struct{}
	notifier Notifier
	logger   *zap.Logger
	pending  []Event
}

// NewEngine 创建引擎, 牌局处于等待开局状态
func NewEngine(id string, rules core.Rules, names []string, opts ...Option) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if len(names) != rules.PlayerCount {
		return nil, core.ErrInvalidPlayers.WithContext("expected", rules.PlayerCount).WithContext("actual", len(names))
	}

	e := &Engine{
		table:    newTable(id, rules, names),
		eval:     core.NewEvaluator(rules, nil),
		deck:     core.NewDeckGenerator(),
		timer:    nopTimer{},
		timers:   make(map[string]struct{}),
		notifier: NotifierFunc(func(Event) {}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("gameId", id))
	return e, nil
}

// ID 牌局ID
func (e *Engine) ID() string {
	return e.table.ID
}

// run 持锁执行 fn, 解锁后依次发出期间产生的事件
//
// fn 发生 panic 时锁照常释放, panic 转为错误返回。
func (e *Engine) run(fn func() error) error {
	e.mu.Lock()
	err := e.guard(fn)
	events := e.pending
	e.pending = nil
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	for _, ev := range events {
		e.notifier.Notify(ev)
	}
	return err
}

func (e *Engine) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("引擎内部错误", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("引擎内部错误: %v", r)
		}
	}()
	return fn()
}

// Start 洗牌、翻金、发牌, 庄家(0号座位)摸第一张牌
func (e *Engine) Start() error {
	return e.run(func() error {
		t := e.table
		if t.Status != core.StatusWaiting {
			return core.ErrGameNotPlaying.WithMessage("牌局已经开始")
		}

		wall, wildcard, err := e.prepareWall()
		if err != nil {
			return err
		}
		hands, rest, err := core.Deal(wall, len(t.Players), t.Rules.HandSize)
		if err != nil {
			return err
		}
		for i, p := range t.Players {
			p.Hand = core.NewHand(hands[i])
		}
		t.Wall = rest
		t.Wildcard = wildcard
		t.Status = core.StatusPlaying
		t.Active = 0
		e.eval = core.NewEvaluator(t.Rules, wildcard)

		wildcardCode := "无"
		if wildcard != nil {
			wildcardCode = wildcard.Code()
		}
		e.logger.Info("牌局开始",
			zap.String("rules", t.Rules.Name),
			zap.String("wildcard", wildcardCode),
			zap.Int("wall", len(t.Wall)))

		for _, p := range t.Players {
			e.emit(Event{Type: EventGameInitialized, Seat: p.Seat, Wildcard: wildcard})
		}

		if !e.drawFor(t.Active) {
			return nil
		}
		e.beginDiscard(t.Active, fmt.Sprintf("游戏开始！金牌是 %s。", wildcardCode))
		return nil
	})
}

// prepareWall 生成牌墙并翻金
func (e *Engine) prepareWall() ([]core.Tile, *core.Tile, error) {
	rules := e.table.Rules
	if e.layout != nil {
		var wildcard *core.Tile
		if rules.HasWildcard {
			wildcard = e.layoutWildcard
		}
		return core.CloneTiles(e.layout), wildcard, nil
	}

	wall := e.deck.GenerateWall(rules)
	e.deck.Shuffle(wall)
	if !rules.HasWildcard {
		return wall, nil, nil
	}
	dice := e.deck.RollDice()
	golden, rest, err := core.PickWildcard(wall, dice, rules.WildcardCount)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("翻金", zap.Int("dice", dice), zap.String("wildcard", golden.Code()))
	return rest, &golden, nil
}

// Submit 处理座位提交的动作, 出错时牌局状态不变
func (e *Engine) Submit(seat int, action core.Action) error {
	return e.run(func() error {
		t := e.table
		if !t.validSeat(seat) {
			return core.ErrMalformedAction.WithMessage("无效的座位").WithContext("seat", seat)
		}
		if t.Status != core.StatusPlaying {
			return core.ErrOutOfTurn.WithMessage("牌局未在进行中")
		}

		var err error
		switch action.Type {
		case core.ActionDiscard:
			err = e.handleDiscard(seat, action)
		case core.ActionWin:
			if t.Phase == PhaseDiscard && seat == t.Active {
				err = e.handleSelfWin(seat)
			} else {
				err = e.handleClaim(seat, action)
			}
		case core.ActionPong, core.ActionKong, core.ActionChow, core.ActionPass:
			err = e.handleClaim(seat, action)
		default:
			err = core.ErrMalformedAction.WithContext("action", action.Type)
		}
		if err != nil {
			e.logger.Warn("玩家操作无效",
				zap.Int("seat", seat),
				zap.Stringer("action", action.Type),
				zap.Error(err))
		}
		return err
	})
}

// handleDiscard 出牌
func (e *Engine) handleDiscard(seat int, action core.Action) error {
	t := e.table
	if t.Phase != PhaseDiscard || seat != t.Active {
		return core.ErrOutOfTurn.WithMessage("现在不是你的出牌回合").WithContext("seat", seat)
	}
	index := -1
	if action.TileIndex != nil {
		index = *action.TileIndex
		if index < 0 {
			return core.ErrMalformedAction.WithMessage("出牌序号超出范围").WithContext("tileIndex", index)
		}
	}

	player := t.Players[seat]
	tile, err := player.Hand.Discard(index)
	if err != nil {
		return err
	}
	e.logger.Info("玩家出牌", zap.Int("seat", seat), zap.String("tile", tile.Code()))
	e.afterDiscard(seat, tile, fmt.Sprintf("玩家 %s 打出了: %s", player.Name, tile.Code()))
	return nil
}

// handleSelfWin 自摸
func (e *Engine) handleSelfWin(seat int) error {
	t := e.table
	hand := t.Players[seat].Hand
	if !t.CanSelfWin || !e.eval.CanWin(hand.Concealed, hand.Drawn) {
		return core.ErrInvalidClaim.WithMessage("当前不能自摸").WithContext("seat", seat)
	}
	e.finishWin(seat, nil, FinishSelfDraw)
	return nil
}

// handleClaim 吃碰杠胡或过
func (e *Engine) handleClaim(seat int, action core.Action) error {
	t := e.table
	if t.Phase != PhaseClaim || t.Claims == nil {
		return core.ErrOutOfTurn.WithMessage("现在不能响应出牌").WithContext("seat", seat)
	}
	if err := t.Claims.Submit(seat, action); err != nil {
		return err
	}
	e.logger.Info("玩家提交了操作", zap.Int("seat", seat), zap.Stringer("action", action.Type))

	if t.Claims.Complete() {
		e.resolveClaims(t.Claims.Seq)
		return nil
	}
	e.emitPrivate(seat)
	return nil
}

// afterDiscard 出牌后计算其他座位的响应资格, 没有人能响应时直接轮到下家
func (e *Engine) afterDiscard(seat int, tile core.Tile, message string) {
	t := e.table
	e.cancelTimer(e.discardTimerID(t.TurnSeq))
	t.LastDiscard = &DiscardInfo{Tile: tile, Seat: seat}
	t.CanSelfWin = false

	next := t.NextSeat(seat)
	eligible := make(map[int]Eligibility)
	for _, p := range t.Players {
		if p.Seat == seat {
			continue
		}
		opts := e.eval.CanClaim(p.Hand.Concealed, tile)
		el := Eligibility{
			Win:  e.eval.CanWin(p.Hand.Concealed, &tile),
			Pong: opts.Pong,
			Kong: opts.Kong,
		}
		// 只有下家可以吃
		if p.Seat == next {
			el.Chows = opts.Chows
		}
		if el.Any() {
			eligible[p.Seat] = el
		}
	}

	if len(eligible) == 0 {
		e.emitPublic(message)
		e.advance(next)
		return
	}

	t.TurnSeq++
	t.Phase = PhaseClaim
	t.Claims = NewClaimWindow(t.TurnSeq, seat, tile, len(t.Players), eligible)
	seq := t.TurnSeq
	e.scheduleTimer(e.claimTimerID(seq), t.Rules.ClaimWindow, func() {
		_ = e.run(func() error {
			e.forgetTimer(e.claimTimerID(seq))
			e.resolveClaims(seq)
			return nil
		})
	})
	e.logger.Debug("等待响应", zap.Uint64("turnSeq", seq), zap.Any("pending", t.Claims.PendingClaims()))
	e.emitState(message + "，等待其他玩家响应...")
}

// resolveClaims 关闭抢牌窗口并执行胜出的响应
func (e *Engine) resolveClaims(seq uint64) {
	t := e.table
	w := t.Claims
	if t.Status != core.StatusPlaying || t.Phase != PhaseClaim || w == nil || w.Seq != seq {
		e.logger.Debug("忽略过期的响应结算", zap.Uint64("turnSeq", seq))
		return
	}
	e.cancelTimer(e.claimTimerID(seq))
	claim, ok := w.Resolve()
	t.Claims = nil
	t.Phase = PhaseIdle

	if !ok {
		e.advance(t.NextSeat(w.Discarder))
		return
	}

	actor := t.Players[claim.Seat]
	var err error
	switch claim.Type {
	case core.ActionWin:
		e.finishWin(claim.Seat, &w.Tile, FinishDiscardWin)
		return
	case core.ActionPong:
		err = actor.Hand.ApplyPong(w.Tile, w.Discarder)
	case core.ActionKong:
		err = actor.Hand.ApplyKong(w.Tile, w.Discarder)
	case core.ActionChow:
		err = actor.Hand.ApplyChow(w.Tile, claim.ChowPair, w.Discarder)
	}
	if err != nil {
		e.logger.Error("执行响应失败", zap.Int("seat", claim.Seat), zap.Stringer("action", claim.Type), zap.Error(err))
		e.advance(t.NextSeat(w.Discarder))
		return
	}

	e.logger.Info("玩家执行了响应",
		zap.Int("seat", claim.Seat),
		zap.Stringer("action", claim.Type),
		zap.String("tile", w.Tile.Code()))
	message := fmt.Sprintf("玩家 %s 执行了 %s 操作。", actor.Name, claim.Type.Label())
	t.Active = claim.Seat

	if claim.Type == core.ActionKong {
		// 杠后补牌, 补到的牌仍然可以自摸
		if !e.drawFor(claim.Seat) {
			return
		}
	} else if actor.Hand.ConcealedCount() == 0 {
		e.emitPublic(message)
		e.finishDraw(FinishEmptyHand, "荒庄(有玩家无牌可打)")
		return
	}
	e.beginDiscard(claim.Seat, message)
}

// advance 轮到 seat 摸牌
func (e *Engine) advance(seat int) {
	if !e.drawFor(seat) {
		return
	}
	e.beginDiscard(seat, fmt.Sprintf("轮到玩家 %s 摸牌。", e.table.Players[seat].Name))
}

// drawFor 为 seat 摸牌, 牌墙已空时流局
func (e *Engine) drawFor(seat int) bool {
	t := e.table
	tile, ok := t.drawFront()
	if !ok {
		e.finishDraw(FinishWallExhausted, "牌墙已空，游戏荒庄！")
		return false
	}
	t.Players[seat].Hand.Draw(tile)
	e.logger.Debug("玩家摸牌", zap.Int("seat", seat), zap.String("tile", tile.Code()), zap.Int("wall", len(t.Wall)))
	return true
}

// beginDiscard 进入 seat 的出牌阶段并开始出牌倒计时
func (e *Engine) beginDiscard(seat int, message string) {
	t := e.table
	t.Phase = PhaseDiscard
	t.Active = seat
	t.Claims = nil
	t.TurnSeq++

	hand := t.Players[seat].Hand
	t.CanSelfWin = hand.Drawn != nil && e.eval.CanWin(hand.Concealed, hand.Drawn)

	seq := t.TurnSeq
	e.scheduleTimer(e.discardTimerID(seq), t.Rules.DiscardTimeout, func() {
		_ = e.run(func() error {
			e.forgetTimer(e.discardTimerID(seq))
			e.onDiscardTimeout(seq)
			return nil
		})
	})

	e.emitState(message)
	e.emit(Event{
		Type:    EventTurnTimeoutCountdown,
		Seat:    seat,
		Timeout: int(math.Ceil(t.Rules.DiscardTimeout.Seconds())),
		Message: fmt.Sprintf("请在 %d 秒内出牌", int(math.Ceil(t.Rules.DiscardTimeout.Seconds()))),
	})
}

// onDiscardTimeout 出牌超时, 替玩家打出新摸的牌
func (e *Engine) onDiscardTimeout(seq uint64) {
	t := e.table
	if t.Status != core.StatusPlaying || t.Phase != PhaseDiscard || t.TurnSeq != seq {
		e.logger.Debug("忽略过期的出牌超时", zap.Uint64("turnSeq", seq), zap.Uint64("current", t.TurnSeq))
		return
	}
	seat := t.Active
	player := t.Players[seat]
	tile, err := player.Hand.Discard(-1)
	if err != nil {
		e.logger.Error("自动出牌时发生错误", zap.Int("seat", seat), zap.Error(err))
		return
	}
	e.logger.Info("玩家出牌超时，系统自动出牌", zap.Int("seat", seat), zap.String("tile", tile.Code()))
	e.afterDiscard(seat, tile, fmt.Sprintf("玩家 %s 出牌超时，系统自动打出: %s", player.Name, tile.Code()))
}

// finishWin 胡牌结束
func (e *Engine) finishWin(seat int, claimed *core.Tile, reason FinishReason) {
	t := e.table
	tiles := t.Players[seat].Hand.AllConcealed()
	if claimed != nil {
		tiles = append(tiles, *claimed)
		core.SortTiles(tiles)
	}
	winner := seat
	t.Winner = &winner
	t.WinningHand = tiles

	label := "胡牌"
	if reason == FinishSelfDraw {
		label = "自摸"
	}
	e.finish(reason, fmt.Sprintf("玩家 %s %s", t.Players[seat].Name, label))
}

// finishDraw 流局
func (e *Engine) finishDraw(reason FinishReason, message string) {
	e.finish(reason, message)
}

// finish 结束牌局
func (e *Engine) finish(reason FinishReason, message string) {
	t := e.table
	t.Status = core.StatusFinished
	t.Phase = PhaseIdle
	t.Claims = nil
	t.CanSelfWin = false
	t.Reason = reason
	e.cancelAllTimers()

	winnerName := "荒庄"
	if t.Winner != nil {
		winnerName = t.Players[*t.Winner].Name
	}
	e.logger.Info("牌局结束", zap.String("reason", string(reason)), zap.String("winner", winnerName))

	e.emitState(fmt.Sprintf("游戏结束！%s。胜利者: %s", message, winnerName))
	result := t.result()
	e.emit(Event{Type: EventGameFinished, Seat: BroadcastSeat, Message: message, Result: &result})
}

// PublicState 公开快照
func (e *Engine) PublicState() PublicSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.publicSnapshot()
}

// PrivateState 指定座位的快照
func (e *Engine) PrivateState(seat int) (PrivateSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.table.validSeat(seat) {
		return PrivateSnapshot{}, core.ErrMalformedAction.WithMessage("无效的座位").WithContext("seat", seat)
	}
	return e.table.privateSnapshot(seat), nil
}

// Status 牌局状态
func (e *Engine) Status() core.GameStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Status
}

// Result 牌局结果, 未结束时返回 false
func (e *Engine) Result() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table.Status != core.StatusFinished {
		return Result{}, false
	}
	return e.table.result(), true
}

// PlayerNames 座位上的玩家名
func (e *Engine) PlayerNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.table.Players))
	for i, p := range e.table.Players {
		names[i] = p.Name
	}
	return names
}

// Close 取消所有未触发的定时任务
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelAllTimers()
}

// emit 记录待发出的事件
func (e *Engine) emit(ev Event) {
	ev.GameID = e.table.ID
	e.pending = append(e.pending, ev)
}

// emitPublic 广播公开快照
func (e *Engine) emitPublic(message string) {
	snap := e.table.publicSnapshot()
	e.emit(Event{Type: EventPublicStateChanged, Seat: BroadcastSeat, Message: message, Public: &snap})
}

// emitPrivate 发送单个座位的私有快照
func (e *Engine) emitPrivate(seat int) {
	snap := e.table.privateSnapshot(seat)
	e.emit(Event{Type: EventPrivateStateChanged, Seat: seat, Private: &snap})
}

// emitState 广播公开快照并给每个座位发送私有快照
func (e *Engine) emitState(message string) {
	e.emitPublic(message)
	for _, p := range e.table.Players {
		e.emitPrivate(p.Seat)
	}
}

func (e *Engine) discardTimerID(seq uint64) string {
	return fmt.Sprintf("%s:discard:%d", e.table.ID, seq)
}

func (e *Engine) claimTimerID(seq uint64) string {
	return fmt.Sprintf("%s:claim:%d", e.table.ID, seq)
}

// scheduleTimer 注册定时任务
func (e *Engine) scheduleTimer(id string, delay time.Duration, fn func()) {
	if err := e.timer.AfterFunc(id, delay, fn); err != nil {
		e.logger.Warn("注册定时任务失败", zap.String("taskId", id), zap.Error(err))
		return
	}
	e.timers[id] = struct{}{}
}

// cancelTimer 取消定时任务
func (e *Engine) cancelTimer(id string) {
	if _, ok := e.timers[id]; !ok {
		return
	}
	delete(e.timers, id)
	e.timer.Cancel(id)
}

// forgetTimer 定时任务已触发
func (e *Engine) forgetTimer(id string) {
	delete(e.timers, id)
}

// cancelAllTimers 取消全部定时任务
func (e *Engine) cancelAllTimers() {
	for id := range e.timers {
		e.timer.Cancel(id)
	}
	clear(e.timers)
}

// nopTimer 不执行任何定时任务
type nopTimer struct{}

func (nopTimer) AfterFunc(string, time.Duration, func()) error { return nil }

func (nopTimer) Cancel(string) {}
