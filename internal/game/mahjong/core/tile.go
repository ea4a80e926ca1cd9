package core

import "slices"

// SortTiles 按排序值对牌进行排序
func SortTiles(tiles []Tile) {
	slices.SortStableFunc(tiles, func(a, b Tile) int {
		return a.Order() - b.Order()
	})
}

// CountTile 统计某张牌的数量
func CountTile(tiles []Tile, target Tile) int {
	count := 0
	for _, t := range tiles {
		if t == target {
			count++
		}
	}
	return count
}

// RemoveTile 从牌组中移除一张牌, 返回新切片与是否移除成功
func RemoveTile(tiles []Tile, target Tile) ([]Tile, bool) {
	for i, t := range tiles {
		if t == target {
			return slices.Delete(slices.Clone(tiles), i, i+1), true
		}
	}
	return tiles, false
}

// RemoveTiles 从牌组中移除多张牌, 任意一张不存在时原样返回 false
func RemoveTiles(tiles []Tile, targets []Tile) ([]Tile, bool) {
	result := slices.Clone(tiles)
	for _, target := range targets {
		var ok bool
		if result, ok = RemoveTile(result, target); !ok {
			return tiles, false
		}
	}
	return result, true
}

// CloneTiles 复制牌组
func CloneTiles(tiles []Tile) []Tile {
	if tiles == nil {
		return []Tile{}
	}
	return slices.Clone(tiles)
}

// CountMap 统计每种牌的数量
func CountMap(tiles []Tile) map[Tile]int {
	counts := make(map[Tile]int, len(tiles))
	for _, t := range tiles {
		counts[t]++
	}
	return counts
}

// IsSequence 判断三张牌是否是同花色顺子
func IsSequence(tiles []Tile) bool {
	if len(tiles) != 3 {
		return false
	}
	sorted := slices.Clone(tiles)
	SortTiles(sorted)
	if sorted[0].IsHonor() {
		return false
	}
	return sorted[0].Suit == sorted[1].Suit && sorted[1].Suit == sorted[2].Suit &&
		sorted[0].Order()+1 == sorted[1].Order() &&
		sorted[1].Order()+1 == sorted[2].Order()
}
