package coinflip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"parish-portal/internal/game"
	"parish-portal/internal/game/gametest"
)

func TestCoinFlip_ValidateBet(t *testing.T) {
	c := New(gametest.NewScriptedSource(0), 0)

	tests := []struct {
		name    string
		bet     int64
		wantErr error
	}{
		{"valid bet", 100, nil},
		{"max bet", DefaultMaxBet, nil},
		{"zero bet", 0, game.ErrInvalidBet},
		{"negative bet", -5, game.ErrInvalidBet},
		{"bet too high", DefaultMaxBet + 1, game.ErrBetTooHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.ValidateBet(tt.bet)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCoinFlip_Play(t *testing.T) {
	c := New(gametest.NewScriptedSource(0, 1), 500)
	ctx := context.Background()

	res, err := c.Play(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Payout)
	assert.Equal(t, Heads, res.Outcome)

	res, err = c.Play(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(-40), res.Payout)
	assert.Equal(t, Tails, res.Outcome)

	_, err = c.Play(ctx, 501)
	assert.ErrorIs(t, err, game.ErrBetTooHigh)
	assert.Equal(t, int64(500), c.MaxBet())
}

// TestCoinFlipPayoutProperty checks that a flip moves the balance by exactly
// the stake and that the outcome agrees with the sign.
func TestCoinFlipPayoutProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		bet := rapid.Int64Range(1, DefaultMaxBet).Draw(t, "bet")

		c := New(gametest.NewSeededSource(seed), DefaultMaxBet)
		res, err := c.Play(context.Background(), bet)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if res.Payout != bet && res.Payout != -bet {
			t.Fatalf("payout %d is not ±%d", res.Payout, bet)
		}
		if (res.Payout > 0) != (res.Outcome == Heads) {
			t.Fatalf("outcome %s disagrees with payout %d", res.Outcome, res.Payout)
		}
	})
}
