package fzmahjong

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sudooom.im.mahjong/internal/game/mahjong/core"
)

var seatNames = []string{"东家", "南家", "西家", "北家"}

// fakeTimer 记录注册的任务, 由测试手动触发
type fakeTimer struct {
	mu        sync.Mutex
	tasks     map[string]func()
	delays    map[string]time.Duration
	cancelled []string
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{tasks: make(map[string]func()), delays: make(map[string]time.Duration)}
}

func (f *fakeTimer) AfterFunc(id string, delay time.Duration, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[id] = fn
	f.delays[id] = delay
	return nil
}

func (f *fakeTimer) Cancel(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	f.cancelled = append(f.cancelled, id)
}

// task 取出任务但不触发
func (f *fakeTimer) task(id string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id]
}

// fire 触发任务
func (f *fakeTimer) fire(t *testing.T, id string) {
	f.mu.Lock()
	fn, ok := f.tasks[id]
	delete(f.tasks, id)
	f.mu.Unlock()
	require.True(t, ok, "任务 %s 不存在", id)
	fn()
}

func (f *fakeTimer) pending() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// recorder 记录引擎发出的事件
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) last(typ EventType) (Event, bool) {
	events := r.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type layoutOption func(*core.Rules)

// newLayoutEngine 按 hands 依次发牌, draws 为之后的摸牌顺序; wildcard 为空时不翻金
func newLayoutEngine(t *testing.T, hands [4]string, draws, wildcard string, opts ...layoutOption) (*Engine, *fakeTimer, *recorder) {
	t.Helper()
	var wall []core.Tile
	for _, h := range hands {
		wall = append(wall, core.MustParseTiles(h)...)
	}
	if draws != "" {
		wall = append(wall, core.MustParseTiles(draws)...)
	}

	rules := core.FuzhouRules()
	rules.HandSize = len(core.MustParseTiles(hands[0]))
	var golden *core.Tile
	if wildcard == "" {
		rules.HasWildcard = false
	} else {
		w := mustTile(wildcard)
		golden = &w
	}
	for _, opt := range opts {
		opt(&rules)
	}

	timer := newFakeTimer()
	rec := &recorder{}
	e, err := NewEngine("g", rules, seatNames,
		WithLayout(wall, golden),
		WithTimer(timer),
		WithNotifier(rec),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	return e, timer, rec
}

// rig 直接修改牌桌, 用于构造难以通过发牌得到的局面
func rig(e *Engine, fn func(t *Table)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.table)
}

func discard(index int) core.Action {
	return core.Action{Type: core.ActionDiscard, TileIndex: &index}
}

func autoDiscard() core.Action {
	return core.Action{Type: core.ActionDiscard}
}

func TestNewEngine(t *testing.T) {
	_, err := NewEngine("g", core.FuzhouRules(), seatNames[:3])
	assert.ErrorIs(t, err, core.ErrInvalidPlayers)

	rules := core.FuzhouRules()
	rules.HandSize = 15
	_, err = NewEngine("g", rules, seatNames)
	assert.ErrorIs(t, err, core.ErrInvalidRules)

	e, err := NewEngine("g", core.FuzhouRules(), seatNames)
	require.NoError(t, err)
	assert.Equal(t, core.StatusWaiting, e.Status())
	assert.ErrorIs(t, e.Submit(0, autoDiscard()), core.ErrOutOfTurn)
	_, ok := e.Result()
	assert.False(t, ok)
}

func TestEngineStartFuzhou(t *testing.T) {
	timer := newFakeTimer()
	rec := &recorder{}
	e, err := NewEngine("fz", core.FuzhouRules(), seatNames,
		WithDeck(core.NewSeededDeckGenerator(7)),
		WithTimer(timer),
		WithNotifier(rec),
		WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	assert.ErrorIs(t, e.Start(), core.ErrGameNotPlaying)

	pub := e.PublicState()
	assert.Equal(t, core.StatusPlaying, pub.Status)
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 0, pub.ActiveSeat)
	assert.Positive(t, pub.WallRemaining)
	for _, p := range pub.Players {
		assert.Equal(t, 16, p.ConcealedCount)
		assert.Equal(t, p.Seat == 0, p.HasDrawn)
	}

	events := rec.all()
	require.Len(t, events, 4+1+4+1)
	var wildcard *core.Tile
	for i := 0; i < 4; i++ {
		assert.Equal(t, EventGameInitialized, events[i].Type)
		assert.Equal(t, i, events[i].Seat)
		require.NotNil(t, events[i].Wildcard)
		wildcard = events[i].Wildcard
	}
	assert.Equal(t, EventPublicStateChanged, events[4].Type)
	assert.Equal(t, "游戏开始！金牌是 "+wildcard.Code()+"。", events[4].Message)
	assert.Equal(t, EventTurnTimeoutCountdown, events[9].Type)
	assert.Equal(t, 20, events[9].Timeout)
	assert.Equal(t, []string{"fz:discard:1"}, timer.pending())

	priv, err := e.PrivateState(0)
	require.NoError(t, err)
	require.NotNil(t, priv.Wildcard)
	assert.Equal(t, *wildcard, *priv.Wildcard)
	assert.Contains(t, priv.Menu, core.ActionDiscard)
}

// 开局后庄家按序号出第一张牌
func TestScenarioFirstDiscard(t *testing.T) {
	rec := &recorder{}
	e, err := NewEngine("a", core.FuzhouRules(), seatNames,
		WithDeck(core.NewSeededDeckGenerator(20241014)),
		WithTimer(newFakeTimer()),
		WithNotifier(rec))
	require.NoError(t, err)
	require.NoError(t, e.Start())

	before, err := e.PrivateState(0)
	require.NoError(t, err)
	require.NotNil(t, before.Drawn)
	require.Len(t, before.Concealed, 16)
	first := before.Concealed[0]

	require.NoError(t, e.Submit(0, discard(0)))

	pub := e.PublicState()
	require.Len(t, pub.Players[0].Discards, 1)
	assert.Equal(t, first, pub.Players[0].Discards[0])
	require.NotNil(t, pub.LastDiscard)
	assert.Equal(t, DiscardInfo{Tile: first, Seat: 0}, *pub.LastDiscard)

	after, err := e.PrivateState(0)
	require.NoError(t, err)
	assert.Len(t, after.Concealed, 16)
	assert.Nil(t, after.Drawn)
	assert.Empty(t, after.Menu)
}

func TestDiscardWithoutClaimAdvances(t *testing.T) {
	e, timer, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")

	priv, err := e.PrivateState(0)
	require.NoError(t, err)
	require.NotNil(t, priv.Drawn)
	assert.Equal(t, mustTile("s"), *priv.Drawn)
	assert.Equal(t, []core.ActionType{core.ActionDiscard}, priv.Menu)

	rec.reset()
	require.NoError(t, e.Submit(0, autoDiscard()))

	pub := e.PublicState()
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 1, pub.ActiveSeat)
	assert.Equal(t, uint64(2), pub.TurnSeq)
	assert.Equal(t, 2, pub.WallRemaining)
	assert.Equal(t, core.MustParseTiles("s"), pub.Players[0].Discards)
	assert.True(t, pub.Players[1].HasDrawn)
	assert.Contains(t, timer.cancelled, "g:discard:1")
	assert.Equal(t, []string{"g:discard:2"}, timer.pending())

	events := rec.all()
	require.NotEmpty(t, events)
	assert.Equal(t, EventPublicStateChanged, events[0].Type)
	assert.Equal(t, "玩家 东家 打出了: s", events[0].Message)
	countdown, ok := rec.last(EventTurnTimeoutCountdown)
	require.True(t, ok)
	assert.Equal(t, 1, countdown.Seat)
}

func TestSubmitErrors(t *testing.T) {
	e, _, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")
	before := e.PublicState()

	tests := []struct {
		name   string
		seat   int
		action core.Action
		want   error
	}{
		{"不是自己的回合", 2, autoDiscard(), core.ErrOutOfTurn},
		{"没有抢牌窗口", 1, core.Action{Type: core.ActionPong}, core.ErrOutOfTurn},
		{"序号越界", 0, discard(9), core.ErrMalformedAction},
		{"负数序号", 0, discard(-1), core.ErrMalformedAction},
		{"未知操作", 0, core.Action{Type: core.ActionType(42)}, core.ErrMalformedAction},
		{"无效座位", 7, autoDiscard(), core.ErrMalformedAction},
		{"不能自摸", 0, core.Action{Type: core.ActionWin}, core.ErrInvalidClaim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Submit(tt.seat, tt.action)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, e.PublicState())
		})
	}

	_, err := e.PrivateState(4)
	assert.ErrorIs(t, err, core.ErrMalformedAction)
}

// 只有下家可以吃时, 对家提交碰
func TestScenarioPongWithoutEligibility(t *testing.T) {
	e, timer, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 2t 5w 8w",
		"3w 6w 9w n",
		"2o 5o 8o b",
	}, "3t 9o 9t", "")

	require.NoError(t, e.Submit(0, autoDiscard()))
	pub := e.PublicState()
	require.Equal(t, PhaseClaim, pub.Phase)
	assert.Equal(t, []string{"g:claim:2"}, timer.pending())
	assert.Equal(t, 5*time.Second, timer.delays["g:claim:2"])

	assert.ErrorIs(t, e.Submit(2, core.Action{Type: core.ActionPong}), core.ErrInvalidClaim)
	assert.ErrorIs(t, e.Submit(3, chowAction("1t", "2t")), core.ErrInvalidClaim)
	assert.ErrorIs(t, e.Submit(0, core.Action{Type: core.ActionPass}), core.ErrInvalidClaim)
	assert.ErrorIs(t, e.Submit(1, autoDiscard()), core.ErrOutOfTurn)
	assert.Equal(t, pub, e.PublicState())

	next, err := e.PrivateState(1)
	require.NoError(t, err)
	assert.Equal(t, []core.ActionType{core.ActionChow, core.ActionPass}, next.Menu)
	assert.Equal(t, [][2]core.Tile{{mustTile("1t"), mustTile("2t")}}, next.Chows)
	other, err := e.PrivateState(2)
	require.NoError(t, err)
	assert.Empty(t, other.Menu)

	// 吃牌后直接出牌, 不摸牌
	require.NoError(t, e.Submit(1, chowAction("2t", "1t")))
	pub = e.PublicState()
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 1, pub.ActiveSeat)
	assert.False(t, pub.Players[1].HasDrawn)
	assert.Equal(t, 2, pub.WallRemaining)
	require.Len(t, pub.Players[1].Melds, 1)
	assert.Equal(t, core.Meld{Type: core.MeldTypeChow, Tiles: core.MustParseTiles("1t 2t 3t"), FromSeat: 0}, pub.Players[1].Melds[0])
	assert.Contains(t, timer.cancelled, "g:claim:2")

	require.NoError(t, e.Submit(1, discard(0)))
	assert.Equal(t, core.MustParseTiles("5w"), e.PublicState().Players[1].Discards)
}

// 杠与吃同时提交, 杠优先
func TestScenarioKongBeatsChow(t *testing.T) {
	e, _, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 2t 5w 8w",
		"3t 3t 3t n",
		"2o 5o 8o b",
	}, "3t 9o 9t", "")

	require.NoError(t, e.Submit(0, autoDiscard()))
	require.Equal(t, PhaseClaim, e.PublicState().Phase)

	kongSeat, err := e.PrivateState(2)
	require.NoError(t, err)
	assert.Equal(t, []core.ActionType{core.ActionKong, core.ActionPong, core.ActionPass}, kongSeat.Menu)

	require.NoError(t, e.Submit(1, chowAction("1t", "2t")))
	assert.ErrorIs(t, e.Submit(1, core.Action{Type: core.ActionPass}), core.ErrAlreadyActed)
	require.Equal(t, PhaseClaim, e.PublicState().Phase)
	require.NoError(t, e.Submit(2, core.Action{Type: core.ActionKong}))

	pub := e.PublicState()
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 2, pub.ActiveSeat)
	assert.Empty(t, pub.Players[1].Melds)
	require.Len(t, pub.Players[2].Melds, 1)
	assert.Equal(t, core.MeldTypeKong, pub.Players[2].Melds[0].Type)
	assert.Len(t, pub.Players[2].Melds[0].Tiles, 4)

	// 杠后补牌
	priv, err := e.PrivateState(2)
	require.NoError(t, err)
	require.NotNil(t, priv.Drawn)
	assert.Equal(t, mustTile("9o"), *priv.Drawn)
	assert.Equal(t, core.MustParseTiles("n"), priv.Concealed)
	assert.Equal(t, 1, pub.WallRemaining)

	assert.ErrorIs(t, e.Submit(1, chowAction("1t", "2t")), core.ErrOutOfTurn)
}

func TestClaimWindowTimeout(t *testing.T) {
	e, timer, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 2t 5w 8w",
		"3w 6w 9w n",
		"2o 5o 8o b",
	}, "3t 9o 9t", "")

	require.NoError(t, e.Submit(0, autoDiscard()))
	timer.fire(t, "g:claim:2")

	pub := e.PublicState()
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 1, pub.ActiveSeat)
	assert.Equal(t, uint64(3), pub.TurnSeq)
	assert.True(t, pub.Players[1].HasDrawn)
	assert.Empty(t, pub.Players[1].Melds)
}

func TestPassClosesWindowEarly(t *testing.T) {
	e, timer, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 2t 5w 8w",
		"3w 6w 9w n",
		"2o 5o 8o b",
	}, "3t 9o 9t", "")

	require.NoError(t, e.Submit(0, autoDiscard()))
	require.NoError(t, e.Submit(1, core.Action{Type: core.ActionPass}))

	pub := e.PublicState()
	assert.Equal(t, PhaseDiscard, pub.Phase)
	assert.Equal(t, 1, pub.ActiveSeat)
	assert.True(t, pub.Players[1].HasDrawn)
	assert.Contains(t, timer.cancelled, "g:claim:2")
	assert.Equal(t, []string{"g:discard:3"}, timer.pending())
}

func TestDiscardTimeout(t *testing.T) {
	e, timer, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")

	assert.Equal(t, 20*time.Second, timer.delays["g:discard:1"])
	timer.fire(t, "g:discard:1")

	pub := e.PublicState()
	assert.Equal(t, core.MustParseTiles("s"), pub.Players[0].Discards)
	assert.Equal(t, 1, pub.ActiveSeat)
	ev, ok := rec.last(EventPublicStateChanged)
	require.True(t, ok)
	assert.Contains(t, ev.Message, "轮到玩家 南家 摸牌")

	// 玩家已经手动出牌后, 过期的超时任务不再生效
	stale := timer.task("g:discard:2")
	require.NotNil(t, stale)
	require.NoError(t, e.Submit(1, autoDiscard()))
	before := e.PublicState()
	stale()
	assert.Equal(t, before, e.PublicState())
	assert.Equal(t, core.MustParseTiles("z"), before.Players[1].Discards)
}

// 摸牌时牌墙已空
func TestScenarioWallExhausted(t *testing.T) {
	e, timer, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s", "")

	require.NoError(t, e.Submit(0, autoDiscard()))

	pub := e.PublicState()
	assert.Equal(t, core.StatusFinished, pub.Status)
	assert.Equal(t, PhaseIdle, pub.Phase)
	assert.Nil(t, pub.Winner)
	assert.Equal(t, FinishWallExhausted, pub.FinishReason)
	assert.Empty(t, timer.pending())

	result, ok := e.Result()
	require.True(t, ok)
	assert.Nil(t, result.Winner)
	assert.Equal(t, FinishWallExhausted, result.Reason)

	events := rec.all()
	lastEvent := events[len(events)-1]
	assert.Equal(t, EventGameFinished, lastEvent.Type)
	require.NotNil(t, lastEvent.Result)
	assert.Nil(t, lastEvent.Result.Winner)
	assert.True(t, lastEvent.Broadcast())

	assert.ErrorIs(t, e.Submit(1, autoDiscard()), core.ErrOutOfTurn)
}

func TestEmptyHandAfterPong(t *testing.T) {
	e, _, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "3t 9o 9t", "")
	rig(e, func(tb *Table) {
		tb.Players[1].Hand = core.NewHand(core.MustParseTiles("3t 3t"))
	})

	require.NoError(t, e.Submit(0, autoDiscard()))
	require.NoError(t, e.Submit(1, core.Action{Type: core.ActionPong}))

	pub := e.PublicState()
	assert.Equal(t, core.StatusFinished, pub.Status)
	assert.Equal(t, FinishEmptyHand, pub.FinishReason)
	assert.Nil(t, pub.Winner)
	finished, ok := rec.last(EventGameFinished)
	require.True(t, ok)
	assert.Equal(t, "荒庄(有玩家无牌可打)", finished.Message)
}

func TestDiscardWin(t *testing.T) {
	e, _, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 2t 5w 5w",
		"3t 3t 9w n",
		"2o 5o 8o b",
	}, "3t 9o 9t", "")

	require.NoError(t, e.Submit(0, autoDiscard()))
	seat1, err := e.PrivateState(1)
	require.NoError(t, err)
	assert.Equal(t, []core.ActionType{core.ActionWin, core.ActionChow, core.ActionPass}, seat1.Menu)

	// 对家先碰, 下家胡牌优先
	require.NoError(t, e.Submit(2, core.Action{Type: core.ActionPong}))
	require.NoError(t, e.Submit(1, core.Action{Type: core.ActionWin}))

	result, ok := e.Result()
	require.True(t, ok)
	require.NotNil(t, result.Winner)
	assert.Equal(t, 1, *result.Winner)
	assert.Equal(t, "南家", result.WinnerName)
	assert.Equal(t, FinishDiscardWin, result.Reason)
	assert.Equal(t, core.MustParseTiles("1t 2t 3t 5w 5w"), result.WinningHand)
}

// 三金倒
func TestScenarioThreeWildcards(t *testing.T) {
	hands := [4]string{
		"z z z e s w n",
		"1t 4t 7t 1o 4o 7o f",
		"2w 5w 8w 2t 5t 8t f",
		"3w 6w 9w 3o 6o 9o f",
	}

	t.Run("允许三金倒", func(t *testing.T) {
		e, _, rec := newLayoutEngine(t, hands, "b 9t", "z")
		priv, err := e.PrivateState(0)
		require.NoError(t, err)
		assert.Equal(t, []core.ActionType{core.ActionDiscard, core.ActionWin}, priv.Menu)

		require.NoError(t, e.Submit(0, core.Action{Type: core.ActionWin}))
		result, ok := e.Result()
		require.True(t, ok)
		require.NotNil(t, result.Winner)
		assert.Equal(t, 0, *result.Winner)
		assert.Equal(t, FinishSelfDraw, result.Reason)
		assert.Len(t, result.WinningHand, 8)

		finished, ok := rec.last(EventGameFinished)
		require.True(t, ok)
		assert.Equal(t, result, *finished.Result)
	})

	t.Run("不允许三金倒", func(t *testing.T) {
		e, _, _ := newLayoutEngine(t, hands, "b 9t", "z", func(r *core.Rules) {
			r.ThreeWildcardsWin = false
		})
		priv, err := e.PrivateState(0)
		require.NoError(t, err)
		assert.Equal(t, []core.ActionType{core.ActionDiscard}, priv.Menu)
		assert.ErrorIs(t, e.Submit(0, core.Action{Type: core.ActionWin}), core.ErrInvalidClaim)
		assert.Equal(t, core.StatusPlaying, e.Status())
	})
}

func TestPublicStateIsCopy(t *testing.T) {
	e, _, _ := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")
	require.NoError(t, e.Submit(0, autoDiscard()))

	first := e.PublicState()
	assert.Equal(t, first, e.PublicState())

	first.Players[0].Discards[0] = mustTile("9w")
	first.Players = nil
	second := e.PublicState()
	assert.Equal(t, core.MustParseTiles("s"), second.Players[0].Discards)

	priv, err := e.PrivateState(1)
	require.NoError(t, err)
	priv.Concealed[0] = mustTile("z")
	again, err := e.PrivateState(1)
	require.NoError(t, err)
	assert.Equal(t, mustTile("1t"), again.Concealed[0])
}

func TestEngineConcurrentSubmit(t *testing.T) {
	e, _, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Submit(0, autoDiscard()); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks)

	// 事件的回合序号单调不减
	var seq uint64
	for _, ev := range rec.all() {
		if ev.Public == nil {
			continue
		}
		assert.GreaterOrEqual(t, ev.Public.TurnSeq, seq)
		seq = ev.Public.TurnSeq
	}
	assert.Equal(t, "g", e.ID())
}

func TestRunRecoversPanic(t *testing.T) {
	e, _, rec := newLayoutEngine(t, [4]string{
		"1o 4o 7o e",
		"1t 4t 7t n",
		"2w 5w 8w b",
		"3w 6w 9w f",
	}, "s z 9o 9t", "")
	rec.reset()

	err := e.run(func() error {
		e.emit(Event{Type: EventPublicStateChanged, Seat: BroadcastSeat})
		var seats []int
		_ = seats[len(e.table.Players)]
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "引擎内部错误")
	assert.Len(t, rec.all(), 1)

	// 锁已释放, 后续调用不会阻塞
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.PublicState()
		_ = e.Submit(0, autoDiscard())
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine lock still held after panic")
	}
}
