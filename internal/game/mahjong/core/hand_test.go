package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.im.mahjong/internal/game/mahjong/core"
)

func TestHandDiscard(t *testing.T) {
	t.Run("默认打出新摸的牌", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("3w 1w 2w"))
		hand.Draw(tile("e"))
		require.Equal(t, 4, hand.TileCount())

		discarded, err := hand.Discard(-1)
		require.NoError(t, err)
		assert.Equal(t, tile("e"), discarded)
		assert.Nil(t, hand.Drawn)
		assert.Equal(t, 3, hand.ConcealedCount())
		assert.Equal(t, []core.Tile{tile("e")}, hand.Discards)
	})

	t.Run("按序号出牌后并入新摸的牌", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("3w 1w 2w"))
		assert.Equal(t, core.MustParseTiles("1w 2w 3w"), hand.Concealed)
		hand.Draw(tile("1o"))

		discarded, err := hand.Discard(0)
		require.NoError(t, err)
		assert.Equal(t, tile("1w"), discarded)
		assert.Equal(t, core.MustParseTiles("1o 2w 3w"), hand.Concealed)
		assert.Nil(t, hand.Drawn)
	})

	t.Run("序号等于手牌数时指向新摸的牌", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("1w 2w"))
		hand.Draw(tile("z"))
		discarded, err := hand.Discard(2)
		require.NoError(t, err)
		assert.Equal(t, tile("z"), discarded)
	})

	t.Run("没有新摸的牌时打出最后一张", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("1w 2w e"))
		discarded, err := hand.Discard(-1)
		require.NoError(t, err)
		assert.Equal(t, tile("e"), discarded)
	})

	t.Run("序号越界", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("1w 2w"))
		_, err := hand.Discard(2)
		assert.True(t, errors.Is(err, core.ErrMalformedAction))
		_, err = hand.Discard(-3)
		assert.ErrorIs(t, err, core.ErrMalformedAction)
		assert.Empty(t, hand.Discards)
	})
}

func TestHandMelds(t *testing.T) {
	t.Run("碰", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("5o 5o 7t e"))
		require.NoError(t, hand.ApplyPong(tile("5o"), 1))
		assert.Equal(t, core.MustParseTiles("7t e"), hand.Concealed)
		require.Len(t, hand.Melds, 1)
		assert.Equal(t, core.MeldTypePong, hand.Melds[0].Type)
		assert.Equal(t, 1, hand.Melds[0].FromSeat)
		assert.Equal(t, 5, hand.TileCount())
	})

	t.Run("杠", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("5o 5o 5o e"))
		require.NoError(t, hand.ApplyKong(tile("5o"), 2))
		assert.Len(t, hand.Melds[0].Tiles, 4)
		assert.Equal(t, core.MustParseTiles("e"), hand.Concealed)
	})

	t.Run("吃牌组合升序", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("6w 4w 9o"))
		require.NoError(t, hand.ApplyChow(tile("5w"), [2]core.Tile{tile("6w"), tile("4w")}, 0))
		assert.Equal(t, core.MustParseTiles("4w 5w 6w"), hand.Melds[0].Tiles)
		assert.Equal(t, core.MustParseTiles("9o"), hand.Concealed)
	})

	t.Run("手中没有的牌", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("5o 7t"))
		err := hand.ApplyPong(tile("5o"), 1)
		assert.ErrorIs(t, err, core.ErrInvalidClaim)
		assert.Equal(t, core.MustParseTiles("5o 7t"), hand.Concealed)
		assert.Empty(t, hand.Melds)

		err = hand.ApplyChow(tile("9w"), [2]core.Tile{tile("5o"), tile("7t")}, 0)
		assert.ErrorIs(t, err, core.ErrInvalidClaim)
	})

	t.Run("拷贝互不影响", func(t *testing.T) {
		hand := core.NewHand(core.MustParseTiles("5o 5o 7t"))
		hand.Draw(tile("1w"))
		c := hand.Clone()
		require.NoError(t, hand.ApplyPong(tile("5o"), 1))
		assert.Equal(t, 3, c.ConcealedCount())
		assert.Empty(t, c.Melds)
		assert.NotNil(t, c.Drawn)
	})
}
