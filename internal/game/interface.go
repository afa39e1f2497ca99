// Package game defines the arcade game contract and the catalogue of
// registered games.
package game

import (
	"context"
	"errors"
)

// Errors shared by arcade games.
var (
	ErrInvalidBet = errors.New("bet amount must be positive")
	ErrBetTooHigh = errors.New("bet exceeds maximum allowed")
)

// Result represents the outcome of one play.
type Result struct {
	Payout  int64          // Signed change to the player's balance
	Outcome string         // Human-readable outcome, e.g. "heads"
	Details map[string]any // Game-specific details
}

// Game is implemented by every arcade game.
type Game interface {
	// Name returns the game's display name.
	Name() string

	// Command returns the identifier the game is registered under.
	Command() string

	// Description returns a brief description of the game.
	Description() string

	// Daily reports whether the game may be played once per day only.
	Daily() bool

	// MaxBet returns the maximum allowed bet, 0 for games without a stake.
	MaxBet() int64

	// ValidateBet checks the stake before any state is touched.
	ValidateBet(bet int64) error

	// Play draws an outcome for the stake. Implementations are pure apart
	// from their randomness source; balance changes are applied by the caller.
	Play(ctx context.Context, bet int64) (*Result, error)
}

// Info is the catalogue view of a game.
type Info struct {
	Command     string `json:"command"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxBet      int64  `json:"maxBet"`
	Daily       bool   `json:"daily"`
}

// Describe returns the catalogue view of g.
func Describe(g Game) Info {
	return Info{
		Command:     g.Command(),
		Name:        g.Name(),
		Description: g.Description(),
		MaxBet:      g.MaxBet(),
		Daily:       g.Daily(),
	}
}
