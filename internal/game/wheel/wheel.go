// Package wheel implements the daily Wheel of Fortune.
package wheel

import (
	"context"
	"fmt"
	"strconv"

	"parish-portal/internal/game"
)

// Command is the registry key of the wheel.
const Command = "wheel"

// RollRange is the exclusive upper bound of a wheel roll.
const RollRange = 100

// segment maps rolls below limit to prize.
type segment struct {
	limit int
	prize int64
}

// segments partitions [0, 100). The third segment pays the same as the
// first; the wheel face has two 10-point sectors.
var segments = []segment{
	{60, 10},
	{85, 50},
	{95, 10},
	{99, 250},
	{RollRange, 500},
}

// PrizeFor returns the prize for a roll in [0, 100).
func PrizeFor(roll int) int64 {
	for _, s := range segments {
		if roll < s.limit {
			return s.prize
		}
	}
	return segments[len(segments)-1].prize
}

// Wheel implements game.Game for the free daily spin.
type Wheel struct {
	rng game.RandomSource
}

// New creates a wheel drawing from rng.
func New(rng game.RandomSource) *Wheel {
	return &Wheel{rng: rng}
}

func (w *Wheel) Name() string    { return "Wheel of Fortune" }
func (w *Wheel) Command() string { return Command }
func (w *Wheel) Description() string {
	return "One free spin per day. Prizes from 10 to 500 points."
}
func (w *Wheel) Daily() bool   { return true }
func (w *Wheel) MaxBet() int64 { return 0 }

// ValidateBet rejects any stake; spins are free.
func (w *Wheel) ValidateBet(bet int64) error {
	if bet != 0 {
		return fmt.Errorf("%w: the wheel takes no stake", game.ErrBetTooHigh)
	}
	return nil
}

// Play spins the wheel.
func (w *Wheel) Play(ctx context.Context, bet int64) (*game.Result, error) {
	if err := w.ValidateBet(bet); err != nil {
		return nil, err
	}

	roll := w.rng.IntN(RollRange)
	prize := PrizeFor(roll)

	return &game.Result{
		Payout:  prize,
		Outcome: strconv.FormatInt(prize, 10),
		Details: map[string]any{"roll": roll},
	}, nil
}
