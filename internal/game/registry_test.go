package game_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parish-portal/internal/game"
	"parish-portal/internal/game/coinflip"
	"parish-portal/internal/game/gametest"
	"parish-portal/internal/game/wheel"
)

func TestRegistry_Catalogue(t *testing.T) {
	rng := gametest.NewSeededSource(1)
	reg, err := game.NewRegistry(wheel.New(rng), coinflip.New(rng, 250))
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Count())

	cat := reg.Catalogue()
	require.Len(t, cat, 2)
	assert.Equal(t, coinflip.Command, cat[0].Command)
	assert.Equal(t, int64(250), cat[0].MaxBet)
	assert.False(t, cat[0].Daily)
	assert.Equal(t, wheel.Command, cat[1].Command)
	assert.True(t, cat[1].Daily)

	g, ok := reg.Get(wheel.Command)
	require.True(t, ok)
	res, err := g.Play(context.Background(), 0)
	require.NoError(t, err)
	assert.Positive(t, res.Payout)

	_, ok = reg.Get("slots")
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	_, err := game.NewRegistry(nil)
	assert.Error(t, err)
}

func TestCryptoSourceRange(t *testing.T) {
	src := game.CryptoSource()
	for i := 0; i < 200; i++ {
		v := src.IntN(3)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 3)
	}
}
