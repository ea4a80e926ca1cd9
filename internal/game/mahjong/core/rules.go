package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules 玩法规则表
type Rules struct {
	Name              string        `yaml:"name" json:"name"`                             // 规则名称
	PlayerCount       int           `yaml:"player_count" json:"playerCount"`              // 玩家人数
	HandSize          int           `yaml:"hand_size" json:"handSize"`                    // 起手牌数
	HasWildcard       bool          `yaml:"has_wildcard" json:"hasWildcard"`              // 是否翻金
	WildcardCount     int           `yaml:"wildcard_count" json:"wildcardCount"`          // 牌墙中金牌的最大张数
	ThreeWildcardsWin bool          `yaml:"three_wildcards_win" json:"threeWildcardsWin"` // 三金倒
	AllowAllPairs     bool          `yaml:"allow_all_pairs" json:"allowAllPairs"`         // 允许七对类胡法
	ExcludedTiles     []string      `yaml:"excluded_tiles" json:"excludedTiles"`          // 从牌墙移除的牌编码
	ClaimWindow       time.Duration `yaml:"claim_window" json:"claimWindow"`              // 吃碰杠胡的等待时间
	DiscardTimeout    time.Duration `yaml:"discard_timeout" json:"discardTimeout"`        // 出牌超时时间
}

// FuzhouRules 福州麻将
func FuzhouRules() Rules {
	return Rules{
		Name:              "福州麻将",
		PlayerCount:       4,
		HandSize:          16,
		HasWildcard:       true,
		WildcardCount:     4,
		ThreeWildcardsWin: true,
		AllowAllPairs:     false,
		ClaimWindow:       5 * time.Second,
		DiscardTimeout:    20 * time.Second,
	}
}

// Validate 校验规则
func (r Rules) Validate() error {
	if r.PlayerCount < 2 || r.PlayerCount > 4 {
		return ErrInvalidRules.WithContext("playerCount", r.PlayerCount)
	}
	if r.HandSize < 1 || r.HandSize%3 != 1 {
		return ErrInvalidRules.WithContext("handSize", r.HandSize)
	}
	if r.HasWildcard && (r.WildcardCount < 1 || r.WildcardCount > 4) {
		return ErrInvalidRules.WithContext("wildcardCount", r.WildcardCount)
	}
	if r.ClaimWindow <= 0 || r.DiscardTimeout <= 0 {
		return ErrInvalidRules.WithContext("claimWindow", r.ClaimWindow).WithContext("discardTimeout", r.DiscardTimeout)
	}
	if _, err := r.excludedSet(); err != nil {
		return err
	}
	// 发完手牌后庄家还要再摸一张
	available := len(r.TileKinds()) * 4
	if r.HasWildcard {
		available -= 4 - r.WildcardCount
	}
	if need := r.PlayerCount*r.HandSize + 1; available < need {
		return ErrInvalidRules.WithContext("tiles", available).WithContext("required", need)
	}
	return nil
}

// excludedSet 解析需要移除的牌
func (r Rules) excludedSet() (map[Tile]bool, error) {
	set := make(map[Tile]bool, len(r.ExcludedTiles))
	for _, code := range r.ExcludedTiles {
		t, err := ParseTile(code)
		if err != nil {
			return nil, ErrInvalidRules.WithCause(err).WithContext("excludedTile", code)
		}
		set[t] = true
	}
	return set, nil
}

// TileKinds 规则下参与牌局的牌种
func (r Rules) TileKinds() []Tile {
	excluded, _ := r.excludedSet()
	kinds := make([]Tile, 0, 34)
	for _, t := range AllTileKinds() {
		if !excluded[t] {
			kinds = append(kinds, t)
		}
	}
	return kinds
}

// LoadPresets 从 YAML 文件读取规则预设, 未填写的字段以福州麻将补齐
func LoadPresets(path string) (map[string]Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets 解析规则预设
func ParsePresets(data []byte) (map[string]Rules, error) {
	var raw struct {
		Presets map[string]yaml.Node `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析规则文件失败: %w", err)
	}

	presets := make(map[string]Rules, len(raw.Presets))
	for key, node := range raw.Presets {
		rules := FuzhouRules()
		if err := node.Decode(&rules); err != nil {
			return nil, fmt.Errorf("解析规则 %s 失败: %w", key, err)
		}
		if err := rules.Validate(); err != nil {
			return nil, fmt.Errorf("规则 %s 无效: %w", key, err)
		}
		presets[key] = rules
	}
	return presets, nil
}
