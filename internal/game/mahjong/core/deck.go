package core

import (
	"math/rand"
	"time"
)

// DeckGenerator 牌墙生成器
type DeckGenerator struct {
	rand *rand.Rand
}

// NewDeckGenerator 创建牌墙生成器
func NewDeckGenerator() *DeckGenerator {
	return NewSeededDeckGenerator(time.Now().UnixNano())
}

// NewSeededDeckGenerator 以固定种子创建牌墙生成器, 同一种子得到同一副牌
func NewSeededDeckGenerator(seed int64) *DeckGenerator {
	return &DeckGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// GenerateWall 生成牌墙 (规则内每种牌各 4 张)
func (d *DeckGenerator) GenerateWall(rules Rules) []Tile {
	kinds := rules.TileKinds()
	wall := make([]Tile, 0, len(kinds)*4)
	for _, kind := range kinds {
		for i := 0; i < 4; i++ {
			wall = append(wall, kind)
		}
	}
	return wall
}

// Shuffle 洗牌
func (d *DeckGenerator) Shuffle(tiles []Tile) {
	d.rand.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}

// RollDice 掷两颗骰子 (2-12)
func (d *DeckGenerator) RollDice() int {
	return d.rand.Intn(6) + d.rand.Intn(6) + 2
}

// PickWildcard 翻金: 从牌墙尾部数第 dice 张作为金牌
//
// 牌墙中超过 maxCount 的金牌会被移除, 返回金牌与处理后的牌墙。
func PickWildcard(wall []Tile, dice, maxCount int) (Tile, []Tile, error) {
	if len(wall) == 0 {
		return Tile{}, nil, ErrWallEmpty.WithContext("wall", 0)
	}
	if dice < 1 || dice > len(wall) {
		dice = 1
	}
	golden := wall[len(wall)-dice]

	result := make([]Tile, 0, len(wall))
	kept := 0
	for _, t := range wall {
		if t == golden {
			if kept >= maxCount {
				continue
			}
			kept++
		}
		result = append(result, t)
	}
	return golden, result, nil
}

// Deal 发牌, 每人 handSize 张, 从牌墙头部依次发出
func Deal(wall []Tile, playerCount, handSize int) ([][]Tile, []Tile, error) {
	if len(wall) < playerCount*handSize {
		return nil, wall, ErrWallEmpty.WithContext("wall", len(wall))
	}
	hands := make([][]Tile, playerCount)
	index := 0
	for i := 0; i < playerCount; i++ {
		hands[i] = CloneTiles(wall[index : index+handSize])
		SortTiles(hands[i])
		index += handSize
	}
	return hands, CloneTiles(wall[index:]), nil
}
