package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"parish-portal/internal/model"
)

// WheelSpinRepository records daily wheel spins.
type WheelSpinRepository struct {
	db DBTX
}

// Create records a spin for the civil date spinDate. Returns ErrDuplicate
// if the user already spun on that date.
func (r *WheelSpinRepository) Create(ctx context.Context, userID uuid.UUID, spinDate time.Time, prize int64) (*model.WheelSpin, error) {
	const query = `
		INSERT INTO wheel_spins (user_id, spin_date, prize_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, spin_date) DO NOTHING
		RETURNING id, user_id, spin_date, prize_amount, spun_at
	`

	var s model.WheelSpin
	err := r.db.QueryRow(ctx, query, userID, model.DateOf(spinDate), prize).
		Scan(&s.ID, &s.UserID, &s.SpinDate, &s.PrizeAmount, &s.SpunAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to record wheel spin: %w", err)
	}
	return &s, nil
}

// ExistsOn reports whether the user has spun on the civil date.
func (r *WheelSpinRepository) ExistsOn(ctx context.Context, userID uuid.UUID, spinDate time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM wheel_spins WHERE user_id = $1 AND spin_date = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, model.DateOf(spinDate)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check wheel spin: %w", err)
	}
	return exists, nil
}
