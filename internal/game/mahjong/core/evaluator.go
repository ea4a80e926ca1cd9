package core

// maxOrder 排序值上限 (箭牌最大为 46)
const maxOrder = 48

// orderTiles 排序值到牌的反查表
var orderTiles = func() [maxOrder]Tile {
	var table [maxOrder]Tile
	for _, t := range AllTileKinds() {
		table[t.Order()] = t
	}
	return table
}()

// tileAt 排序值对应的牌
func tileAt(order int) (Tile, bool) {
	if order <= 0 || order >= maxOrder {
		return Tile{}, false
	}
	t := orderTiles[order]
	return t, t.Valid()
}

// counts 按排序值索引的牌数
type counts [maxOrder]int

// total 剩余牌数
func (c *counts) total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// lowest 排序值最小的剩余牌, 没有时返回 -1
func (c *counts) lowest() int {
	for i, v := range c {
		if v > 0 {
			return i
		}
	}
	return -1
}

// ClaimOptions 一张打出的牌对某手牌可以进行的操作
type ClaimOptions struct {
	Pong  bool      `json:"pong"`
	Kong  bool      `json:"kong"`
	Chows [][2]Tile `json:"chows,omitempty"`
}

// Any 是否有任何可执行的操作
func (o ClaimOptions) Any() bool {
	return o.Pong || o.Kong || len(o.Chows) > 0
}

// HasChow 是否包含指定的吃牌组合(与顺序无关)
func (o ClaimOptions) HasChow(pair [2]Tile) bool {
	pair = canonicalPair(pair)
	for _, c := range o.Chows {
		if c == pair {
			return true
		}
	}
	return false
}

// canonicalPair 吃牌组合按排序值升序
func canonicalPair(pair [2]Tile) [2]Tile {
	if pair[0].Order() > pair[1].Order() {
		pair[0], pair[1] = pair[1], pair[0]
	}
	return pair
}

// Evaluator 手牌判断器
//
// 只读取传入的牌, 不修改任何状态。一局游戏的金牌确定后创建。
type Evaluator struct {
	rules    Rules
	wildcard *Tile
}

// NewEvaluator 创建手牌判断器, wildcard 为空或规则不翻金时没有万能牌
func NewEvaluator(rules Rules, wildcard *Tile) *Evaluator {
	e := &Evaluator{rules: rules}
	if rules.HasWildcard && wildcard != nil {
		w := *wildcard
		e.wildcard = &w
	}
	return e
}

// IsWildcard 是否金牌
func (e *Evaluator) IsWildcard(t Tile) bool {
	return e.wildcard != nil && *e.wildcard == t
}

// split 拆出金牌数量与其余牌的计数
func (e *Evaluator) split(tiles []Tile) (counts, int) {
	var c counts
	wild := 0
	for _, t := range tiles {
		if e.IsWildcard(t) {
			wild++
			continue
		}
		if o := t.Order(); o > 0 && o < maxOrder {
			c[o]++
		}
	}
	return c, wild
}

// CanWin 判断手牌加上 extra 能否胡牌
func (e *Evaluator) CanWin(concealed []Tile, extra *Tile) bool {
	tiles := CloneTiles(concealed)
	if extra != nil {
		tiles = append(tiles, *extra)
	}
	c, wild := e.split(tiles)
	total := len(tiles)

	if e.rules.ThreeWildcardsWin && wild >= 3 {
		return true
	}

	if e.rules.AllowAllPairs && total > 0 && total%2 == 0 && allPairs(&c, wild) {
		return true
	}

	if total < 2 || (total-2)%3 != 0 {
		return false
	}

	limit := maxDepth(total)
	for i := range c {
		if c[i] >= 2 {
			c[i] -= 2
			ok := canFormAllMelds(&c, wild, 0, limit)
			c[i] += 2
			if ok {
				return true
			}
		}
		if c[i] >= 1 && wild >= 1 {
			c[i]--
			ok := canFormAllMelds(&c, wild-1, 0, limit)
			c[i]++
			if ok {
				return true
			}
		}
	}
	// 两张金牌做将
	if wild >= 2 && canFormAllMelds(&c, wild-2, 0, limit) {
		return true
	}
	return false
}

// CanFormAllMelds 判断牌是否能全部组成刻子或顺子, wildcards 为可用的金牌数
func (e *Evaluator) CanFormAllMelds(tiles map[Tile]int, wildcards int) bool {
	var c counts
	for t, n := range tiles {
		if n <= 0 {
			continue
		}
		if e.IsWildcard(t) {
			wildcards += n
			continue
		}
		if o := t.Order(); o > 0 && o < maxOrder {
			c[o] += n
		}
	}
	if (c.total()+wildcards)%3 != 0 {
		return false
	}
	return canFormAllMelds(&c, wildcards, 0, maxDepth(c.total()+wildcards))
}

// maxDepth 递归深度上限, 约为手牌数的一半
func maxDepth(total int) int {
	return total/2 + 1
}

// allPairs 对子胡: 每个落单的牌需要一张金牌补齐, 剩余金牌须成对
func allPairs(c *counts, wild int) bool {
	holes := 0
	for _, v := range c {
		holes += v % 2
	}
	return wild >= holes && (wild-holes)%2 == 0
}

// canFormAllMelds 从排序值最小的牌开始依次尝试刻子与顺子
func canFormAllMelds(c *counts, wild, depth, limit int) bool {
	first := c.lowest()
	if first < 0 {
		return true
	}
	if depth >= limit {
		return false
	}

	// 刻子: 分别使用 0/1/2 张金牌补齐
	for used := 0; used <= 2; used++ {
		need := 3 - used
		if c[first] >= need && wild >= used {
			c[first] -= need
			ok := canFormAllMelds(c, wild-used, depth+1, limit)
			c[first] += need
			if ok {
				return true
			}
		}
	}

	t, _ := tileAt(first)
	if t.IsHonor() {
		return false
	}

	// 顺子: 优先以最小的牌开头, 其后尝试让金牌充当更小的牌 (8/9 开头时需要)
	for start := first; start >= first-2; start-- {
		if tryRun(c, wild, start, first, depth, limit) {
			return true
		}
	}
	return false
}

// tryRun 尝试组成 start, start+1, start+2 的顺子, 缺少的牌用金牌补齐
func tryRun(c *counts, wild, start, first, depth, limit int) bool {
	base, ok := tileAt(start)
	if !ok || base.IsHonor() {
		return false
	}
	var taken [3]bool
	needed := 0
	for k := 0; k < 3; k++ {
		t, ok := tileAt(start + k)
		if !ok || t.Suit != base.Suit {
			return false
		}
		// first 之前的牌已不存在, 只能由金牌充当
		if start+k >= first && c[start+k] > 0 {
			taken[k] = true
		} else {
			needed++
		}
	}
	if needed > wild || !taken[first-start] {
		return false
	}

	for k := 0; k < 3; k++ {
		if taken[k] {
			c[start+k]--
		}
	}
	ok = canFormAllMelds(c, wild-needed, depth+1, limit)
	for k := 0; k < 3; k++ {
		if taken[k] {
			c[start+k]++
		}
	}
	return ok
}

// CanClaim 判断打出的牌可以被手牌如何吃碰杠
//
// 碰需要手中至少两张同样的牌, 杠需要三张。吃列出全部能与打出的牌组成顺子的两张牌,
// 字牌与金牌不参与吃。是否轮到下家吃牌由调用方判断。
func (e *Evaluator) CanClaim(concealed []Tile, discarded Tile) ClaimOptions {
	n := CountTile(concealed, discarded)
	opts := ClaimOptions{
		Pong: n >= 2,
		Kong: n >= 3,
	}
	if discarded.IsHonor() || e.IsWildcard(discarded) {
		return opts
	}

	have := CountMap(concealed)
	seen := make(map[[2]Tile]bool)
	for _, layout := range [][2]int{{-2, -1}, {-1, 1}, {1, 2}} {
		a, okA := discarded.Offset(layout[0])
		b, okB := discarded.Offset(layout[1])
		if !okA || !okB {
			continue
		}
		if e.IsWildcard(a) || e.IsWildcard(b) || have[a] == 0 || have[b] == 0 {
			continue
		}
		pair := canonicalPair([2]Tile{a, b})
		if seen[pair] {
			continue
		}
		seen[pair] = true
		opts.Chows = append(opts.Chows, pair)
	}
	return opts
}
