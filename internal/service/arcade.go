package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/game"
	"parish-portal/internal/game/coinflip"
	"parish-portal/internal/game/wheel"
	"parish-portal/internal/model"
	"parish-portal/internal/pkg/lock"
	"parish-portal/internal/repository"
)

const (
	wheelPrizeDescription = "Wheel of Fortune prize"
	coinWinDescription    = "Coin flip win"
	coinLossDescription   = "Coin flip loss"
	spinAvailableNow      = "now"
)

// WheelResult is the outcome of a spin or a cooldown check.
type WheelResult struct {
	PrizeAmount       int64  `json:"prizeAmount"`
	CanSpinAgain      bool   `json:"canSpinAgain"`
	NextSpinAvailable string `json:"nextSpinAvailable"`
}

// CoinFlipResult is the outcome of a coin flip. Result is the signed
// balance change.
type CoinFlipResult struct {
	Won       bool   `json:"won"`
	AmountBet int64  `json:"amountBet"`
	Result    int64  `json:"result"`
	Outcome   string `json:"outcome"`
}

// ArcadeService runs the daily wheel and the coin flip. Plays of one user
// are serialized.
type ArcadeService struct {
	store       *repository.Store
	points      *PointsService
	games       *game.Registry
	wheel       game.Game
	coin        game.Game
	locks       *lock.KeyLock[uuid.UUID]
	lockTimeout time.Duration
	loc         *time.Location
	now         Clock
}

// NewArcadeService creates a new ArcadeService. The registry must hold the
// wheel and the coin flip.
func NewArcadeService(store *repository.Store, points *PointsService, games *game.Registry, loc *time.Location, lockTimeout time.Duration) (*ArcadeService, error) {
	w, ok := games.Get(wheel.Command)
	if !ok {
		return nil, fmt.Errorf("game %q is not registered", wheel.Command)
	}
	c, ok := games.Get(coinflip.Command)
	if !ok {
		return nil, fmt.Errorf("game %q is not registered", coinflip.Command)
	}

	return &ArcadeService{
		store:       store,
		points:      points,
		games:       games,
		wheel:       w,
		coin:        c,
		locks:       lock.New[uuid.UUID](),
		lockTimeout: lockTimeout,
		loc:         loc,
		now:         time.Now,
	}, nil
}

// Catalogue lists the registered games.
func (s *ArcadeService) Catalogue() []game.Info {
	return s.games.Catalogue()
}

func (s *ArcadeService) withUserLock(ctx context.Context, userID uuid.UUID, fn func() error) error {
	err := s.locks.WithLockContext(ctx, userID, s.lockTimeout, fn)
	if errors.Is(err, lock.ErrLockTimeout) {
		return conflict("another game is in progress")
	}
	return err
}

func (s *ArcadeService) cooldown(today time.Time) *WheelResult {
	return &WheelResult{
		PrizeAmount:       0,
		CanSpinAgain:      false,
		NextSpinAvailable: today.AddDate(0, 0, 1).Format(model.DateLayout),
	}
}

// SpinWheel spins the wheel once per Warsaw day and credits the prize.
// A second spin on the same day returns the cooldown without a prize.
func (s *ArcadeService) SpinWheel(ctx context.Context, userID uuid.UUID) (*WheelResult, error) {
	today := civilToday(s.now, s.loc)

	var result *WheelResult
	err := s.withUserLock(ctx, userID, func() error {
		return s.store.InTx(ctx, func(store *repository.Store) error {
			spun, err := store.Spins.ExistsOn(ctx, userID, today)
			if err != nil {
				return err
			}
			if spun {
				result = s.cooldown(today)
				return nil
			}

			played, err := s.wheel.Play(ctx, 0)
			if err != nil {
				return err
			}

			if _, err := store.Spins.Create(ctx, userID, today, played.Payout); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					result = s.cooldown(today)
					return nil
				}
				return err
			}
			if _, err := s.points.awardTx(ctx, store, AwardRequest{
				UserID:      userID,
				Amount:      played.Payout,
				Type:        model.TxManualAward,
				Description: wheelPrizeDescription,
			}); err != nil {
				return err
			}

			result = s.cooldown(today)
			result.PrizeAmount = played.Payout

			log.Info().
				Str("user_id", userID.String()).
				Int64("prize", played.Payout).
				Msg("Wheel spun")
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WheelStatus reports whether the user may spin today.
func (s *ArcadeService) WheelStatus(ctx context.Context, userID uuid.UUID) (*WheelResult, error) {
	today := civilToday(s.now, s.loc)
	spun, err := s.store.Spins.ExistsOn(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	if spun {
		return s.cooldown(today), nil
	}
	return &WheelResult{CanSpinAgain: true, NextSpinAvailable: spinAvailableNow}, nil
}

// FlipCoin wagers amount points on a fair coin. The user must hold at
// least amount points.
func (s *ArcadeService) FlipCoin(ctx context.Context, userID uuid.UUID, amount int64) (*CoinFlipResult, error) {
	if err := s.coin.ValidateBet(amount); err != nil {
		return nil, invalid("%s", err.Error())
	}

	var result *CoinFlipResult
	err := s.withUserLock(ctx, userID, func() error {
		return s.store.InTx(ctx, func(store *repository.Store) error {
			u, err := store.Users.GetForUpdate(ctx, userID)
			if err != nil {
				return fromRepo(err)
			}
			if u.Points < amount {
				return ErrInsufficientPoints
			}

			played, err := s.coin.Play(ctx, amount)
			if err != nil {
				return invalid("%s", err.Error())
			}
			won := played.Payout > 0
			description := coinLossDescription
			if won {
				description = coinWinDescription
			}

			if _, err := s.points.awardTx(ctx, store, AwardRequest{
				UserID:      userID,
				Amount:      played.Payout,
				Type:        model.TxManualAward,
				Description: description,
				Guarded:     true,
			}); err != nil {
				return err
			}

			result = &CoinFlipResult{
				Won:       won,
				AmountBet: amount,
				Result:    played.Payout,
				Outcome:   played.Outcome,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Int64("amount", amount).
		Str("outcome", result.Outcome).
		Msg("Coin flipped")
	return result, nil
}
