package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/model"
	"parish-portal/internal/repository"
)

const (
	historyLimit     = 20
	leaderboardLimit = 20
)

// PointsService owns the points ledger. Every balance change goes through
// awardTx, which updates the balance and appends one transaction row.
type PointsService struct {
	store *repository.Store
}

// NewPointsService creates a new PointsService instance.
func NewPointsService(store *repository.Store) *PointsService {
	return &PointsService{store: store}
}

// AwardRequest describes one ledger entry. Amount is signed.
type AwardRequest struct {
	UserID      uuid.UUID
	Amount      int64
	Type        model.TransactionType
	Description string
	SourceID    *uuid.UUID
	CreatedBy   *uuid.UUID

	// Guarded refuses to take the balance below zero.
	Guarded bool
}

// Award applies req in its own transaction.
func (s *PointsService) Award(ctx context.Context, req AwardRequest) (*model.PointsTransaction, error) {
	var tx *model.PointsTransaction
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		var err error
		tx, err = s.awardTx(ctx, store, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// awardTx applies req inside the caller's transaction.
func (s *PointsService) awardTx(ctx context.Context, store *repository.Store, req AwardRequest) (*model.PointsTransaction, error) {
	if req.Amount == 0 {
		return nil, invalid("amount must not be zero")
	}
	if req.Type == "" {
		req.Type = model.TxManualAward
	}

	var err error
	if req.Guarded {
		_, err = store.Users.AddPointsGuarded(ctx, req.UserID, req.Amount)
	} else {
		_, err = store.Users.AddPoints(ctx, req.UserID, req.Amount)
	}
	if err != nil {
		return nil, fromRepo(err)
	}

	tx, err := store.Transactions.Create(ctx, &model.PointsTransaction{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Type:        req.Type,
		Description: req.Description,
		SourceID:    req.SourceID,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// AwardManually is the admin entry point for crediting or deducting points.
func (s *PointsService) AwardManually(ctx context.Context, userID uuid.UUID, amount int64, reason string, actingUserID uuid.UUID) (*model.PointsTransaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}

	tx, err := s.Award(ctx, AwardRequest{
		UserID:      userID,
		Amount:      amount,
		Type:        model.TxManualAward,
		Description: reason,
		CreatedBy:   &actingUserID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("admin_id", actingUserID.String()).
		Int64("amount", amount).
		Msg("Points awarded manually")
	return tx, nil
}

// History returns the user's newest ledger entries.
func (s *PointsService) History(ctx context.Context, userID uuid.UUID) ([]*model.PointsTransaction, error) {
	return s.store.Transactions.GetByUserID(ctx, userID, historyLimit)
}

// Leaderboard returns the top active users by points.
func (s *PointsService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	users, err := s.store.Users.GetTopUsers(ctx, leaderboardLimit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = model.LeaderboardEntry{
			UserID:       u.ID,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			ProfileImage: u.ProfileImage,
			Points:       u.Points,
		}
	}
	return entries, nil
}

// Balance returns the user's current points.
func (s *PointsService) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, fromRepo(err)
	}
	return u.Points, nil
}

// Reconcile returns the stored balance and the sum of the user's ledger.
// The two are equal unless the ledger has been bypassed.
func (s *PointsService) Reconcile(ctx context.Context, userID uuid.UUID) (balance, ledgerSum int64, err error) {
	err = s.store.InTx(ctx, func(store *repository.Store) error {
		u, err := store.Users.GetByID(ctx, userID)
		if err != nil {
			return fromRepo(err)
		}
		balance = u.Points
		ledgerSum, err = store.Transactions.SumByUser(ctx, userID)
		return err
	})
	return balance, ledgerSum, err
}
