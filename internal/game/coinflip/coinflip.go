// Package coinflip implements the 50/50 coin flip.
package coinflip

import (
	"context"
	"fmt"

	"parish-portal/internal/game"
)

// Command is the registry key of the coin flip.
const Command = "coinflip"

// DefaultMaxBet applies when no maximum is configured.
const DefaultMaxBet = 1000

// Outcomes of a flip. Heads wins.
const (
	Heads = "heads"
	Tails = "tails"
)

// CoinFlip implements game.Game: win the stake on heads, lose it on tails.
type CoinFlip struct {
	rng    game.RandomSource
	maxBet int64
}

// New creates a coin flip with the given maximum stake.
func New(rng game.RandomSource, maxBet int64) *CoinFlip {
	if maxBet <= 0 {
		maxBet = DefaultMaxBet
	}
	return &CoinFlip{rng: rng, maxBet: maxBet}
}

func (c *CoinFlip) Name() string    { return "Coin Flip" }
func (c *CoinFlip) Command() string { return Command }
func (c *CoinFlip) Description() string {
	return "Bet points on a coin flip: heads doubles the stake, tails loses it."
}
func (c *CoinFlip) Daily() bool   { return false }
func (c *CoinFlip) MaxBet() int64 { return c.maxBet }

// ValidateBet requires 0 < bet <= MaxBet.
func (c *CoinFlip) ValidateBet(bet int64) error {
	if bet <= 0 {
		return game.ErrInvalidBet
	}
	if bet > c.maxBet {
		return fmt.Errorf("%w: max bet is %d", game.ErrBetTooHigh, c.maxBet)
	}
	return nil
}

// Play flips the coin.
func (c *CoinFlip) Play(ctx context.Context, bet int64) (*game.Result, error) {
	if err := c.ValidateBet(bet); err != nil {
		return nil, err
	}

	won := c.rng.IntN(2) == 0
	outcome := Tails
	if won {
		outcome = Heads
	}

	return &game.Result{
		Payout:  CalculatePayout(won, bet),
		Outcome: outcome,
		Details: map[string]any{"won": won},
	}, nil
}

// CalculatePayout returns +bet for a win and -bet for a loss.
func CalculatePayout(won bool, bet int64) int64 {
	if won {
		return bet
	}
	return -bet
}
