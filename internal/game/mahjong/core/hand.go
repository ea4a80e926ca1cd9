package core

// Hand 玩家手牌
//
// Concealed 始终保持排序。新摸的牌单独存放在 Drawn 中, 出牌后并入手牌。
type Hand struct {
	Concealed []Tile // 暗手牌
	Drawn     *Tile  // 新摸的牌
	Melds     []Meld // 明牌组合
	Discards  []Tile // 出牌记录
}

// NewHand 创建手牌
func NewHand(tiles []Tile) *Hand {
	concealed := CloneTiles(tiles)
	SortTiles(concealed)
	return &Hand{
		Concealed: concealed,
		Melds:     []Meld{},
		Discards:  []Tile{},
	}
}

// Clone 深拷贝手牌
func (h *Hand) Clone() *Hand {
	c := &Hand{
		Concealed: CloneTiles(h.Concealed),
		Melds:     make([]Meld, len(h.Melds)),
		Discards:  CloneTiles(h.Discards),
	}
	if h.Drawn != nil {
		drawn := *h.Drawn
		c.Drawn = &drawn
	}
	for i, m := range h.Melds {
		c.Melds[i] = Meld{Type: m.Type, Tiles: CloneTiles(m.Tiles), FromSeat: m.FromSeat}
	}
	return c
}

// ConcealedCount 暗手牌数量 (不含新摸的牌)
func (h *Hand) ConcealedCount() int {
	return len(h.Concealed)
}

// TileCount 按规则计算的手牌数
//
// 每个明牌组合按 3 张计 (杠的第四张不计入), 持有新摸的牌时加 1。
func (h *Hand) TileCount() int {
	n := len(h.Concealed) + 3*len(h.Melds)
	if h.Drawn != nil {
		n++
	}
	return n
}

// AllConcealed 暗手牌加上新摸的牌
func (h *Hand) AllConcealed() []Tile {
	tiles := CloneTiles(h.Concealed)
	if h.Drawn != nil {
		tiles = append(tiles, *h.Drawn)
		SortTiles(tiles)
	}
	return tiles
}

// Draw 摸牌
func (h *Hand) Draw(t Tile) {
	h.IntegrateDrawn()
	h.Drawn = &t
}

// IntegrateDrawn 把新摸的牌并入暗手牌
func (h *Hand) IntegrateDrawn() {
	if h.Drawn == nil {
		return
	}
	h.Concealed = append(h.Concealed, *h.Drawn)
	SortTiles(h.Concealed)
	h.Drawn = nil
}

// Discard 出牌
//
// index 为 -1 时打出新摸的牌, 没有新摸的牌时打出暗手牌中排序最后的一张。
// index 等于暗手牌数量时同样指向新摸的牌。
func (h *Hand) Discard(index int) (Tile, error) {
	var tile Tile
	switch {
	case index == -1 || (index == len(h.Concealed) && h.Drawn != nil):
		if h.Drawn != nil {
			tile = *h.Drawn
			h.Drawn = nil
			break
		}
		if len(h.Concealed) == 0 {
			return Tile{}, ErrMalformedAction.WithMessage("没有可以打出的牌")
		}
		tile = h.Concealed[len(h.Concealed)-1]
		h.Concealed = h.Concealed[:len(h.Concealed)-1]
	case index >= 0 && index < len(h.Concealed):
		tile = h.Concealed[index]
		h.Concealed = append(h.Concealed[:index:index], h.Concealed[index+1:]...)
		h.IntegrateDrawn()
	default:
		return Tile{}, ErrMalformedAction.WithMessage("出牌序号超出范围").WithContext("tileIndex", index)
	}
	h.Discards = append(h.Discards, tile)
	return tile, nil
}

// ApplyPong 碰: 手中两张与打出的牌组成刻子
func (h *Hand) ApplyPong(tile Tile, fromSeat int) error {
	return h.lock(MeldTypePong, tile, []Tile{tile, tile}, fromSeat)
}

// ApplyKong 明杠: 手中三张与打出的牌组成杠
func (h *Hand) ApplyKong(tile Tile, fromSeat int) error {
	return h.lock(MeldTypeKong, tile, []Tile{tile, tile, tile}, fromSeat)
}

// ApplyChow 吃: 手中两张与打出的牌组成顺子
func (h *Hand) ApplyChow(tile Tile, pair [2]Tile, fromSeat int) error {
	meld := []Tile{pair[0], pair[1], tile}
	if !IsSequence(meld) {
		return ErrInvalidClaim.WithMessage("无效的吃牌组合").WithContext("pair", pair)
	}
	return h.lock(MeldTypeChow, tile, pair[:], fromSeat)
}

// lock 从暗手牌移出 consumed 并与 claimed 组成明牌
func (h *Hand) lock(meldType MeldType, claimed Tile, consumed []Tile, fromSeat int) error {
	h.IntegrateDrawn()
	remaining, ok := RemoveTiles(h.Concealed, consumed)
	if !ok {
		return ErrInvalidClaim.WithContext("tile", claimed).WithContext("meld", meldType)
	}
	tiles := append(CloneTiles(consumed), claimed)
	SortTiles(tiles)
	h.Concealed = remaining
	h.Melds = append(h.Melds, Meld{Type: meldType, Tiles: tiles, FromSeat: fromSeat})
	return nil
}
