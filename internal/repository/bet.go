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

const betColumns = `id, creator_id, topic, options, status, betting_deadline, resolution_date, winning_option, created_at, resolved_at`

const entryColumns = `id, user_id, bet_id, amount, selected_option, placed_at, winnings, settled`

// BetRepository handles bets and their entries.
type BetRepository struct {
	db DBTX
}

// NewBet holds the fields of a bet being opened.
type NewBet struct {
	CreatorID       uuid.UUID
	Topic           string
	Options         []string
	BettingDeadline time.Time
	ResolutionDate  time.Time
}

func scanBet(row pgx.Row) (*model.Bet, error) {
	var b model.Bet
	err := row.Scan(
		&b.ID,
		&b.CreatorID,
		&b.Topic,
		&b.Options,
		&b.Status,
		&b.BettingDeadline,
		&b.ResolutionDate,
		&b.WinningOption,
		&b.CreatedAt,
		&b.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanEntry(row pgx.Row) (*model.BetEntry, error) {
	var e model.BetEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.BetID,
		&e.Amount,
		&e.SelectedOption,
		&e.PlacedAt,
		&e.Winnings,
		&e.Settled,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create opens a bet in OPEN status.
func (r *BetRepository) Create(ctx context.Context, nb NewBet) (*model.Bet, error) {
	query := `
		INSERT INTO bets (creator_id, topic, options, betting_deadline, resolution_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + betColumns

	b, err := scanBet(r.db.QueryRow(ctx, query, nb.CreatorID, nb.Topic, nb.Options, nb.BettingDeadline, nb.ResolutionDate))
	if err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}
	return b, nil
}

// Get retrieves a bet by id.
func (r *BetRepository) Get(ctx context.Context, id uuid.UUID) (*model.Bet, error) {
	return r.getOne(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, id)
}

// GetForUpdate retrieves a bet and locks it until the transaction ends.
func (r *BetRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Bet, error) {
	return r.getOne(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1 FOR UPDATE`, id)
}

func (r *BetRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*model.Bet, error) {
	b, err := scanBet(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetNotFound
		}
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return b, nil
}

// SetStatus moves a bet to status.
func (r *BetRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.BetStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE bets SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update bet status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrBetNotFound
	}
	return nil
}

// Resolve marks a bet RESOLVED with its winning option.
func (r *BetRepository) Resolve(ctx context.Context, id uuid.UUID, winningOption string, resolvedAt time.Time) (*model.Bet, error) {
	query := `
		UPDATE bets
		SET status = 'RESOLVED', winning_option = $2, resolved_at = $3
		WHERE id = $1
		RETURNING ` + betColumns

	b, err := scanBet(r.db.QueryRow(ctx, query, id, winningOption, resolvedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBetNotFound
		}
		return nil, fmt.Errorf("failed to resolve bet: %w", err)
	}
	return b, nil
}

// ListByStatus returns bets in any of statuses, newest first, or latest
// resolution date first when byResolution is set.
func (r *BetRepository) ListByStatus(ctx context.Context, statuses []model.BetStatus, byResolution bool) ([]*model.Bet, error) {
	order := `created_at DESC, id DESC`
	if byResolution {
		order = `resolution_date DESC, id DESC`
	}
	query := `SELECT ` + betColumns + ` FROM bets WHERE status = ANY($1) ORDER BY ` + order

	return r.list(ctx, query, statusStrings(statuses))
}

// ListByParticipant returns every bet the user has an entry on, newest first.
func (r *BetRepository) ListByParticipant(ctx context.Context, userID uuid.UUID) ([]*model.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE id IN (SELECT bet_id FROM bet_entries WHERE user_id = $1)
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, userID)
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*model.Bet, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	defer rows.Close()

	var bets []*model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// LockExpired moves every OPEN bet whose deadline is at or before now to
// LOCKED and returns how many changed.
func (r *BetRepository) LockExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE bets
		SET status = 'LOCKED'
		WHERE status = 'OPEN' AND betting_deadline <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to lock expired bets: %w", err)
	}
	return result.RowsAffected(), nil
}

// CreateEntry records a stake. Returns ErrDuplicate if the user already
// has an entry on the bet.
func (r *BetRepository) CreateEntry(ctx context.Context, userID, betID uuid.UUID, option string, amount int64) (*model.BetEntry, error) {
	query := `
		INSERT INTO bet_entries (user_id, bet_id, selected_option, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, bet_id) DO NOTHING
		RETURNING ` + entryColumns

	e, err := scanEntry(r.db.QueryRow(ctx, query, userID, betID, option, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create bet entry: %w", err)
	}
	return e, nil
}

// ListEntries returns a bet's entries in placement order.
func (r *BetRepository) ListEntries(ctx context.Context, betID uuid.UUID) ([]*model.BetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM bet_entries WHERE bet_id = $1 ORDER BY placed_at ASC, id ASC`
	return r.listEntries(ctx, query, betID)
}

// ListEntriesForBets returns the entries of several bets in placement order.
func (r *BetRepository) ListEntriesForBets(ctx context.Context, betIDs []uuid.UUID) ([]*model.BetEntry, error) {
	if len(betIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + entryColumns + ` FROM bet_entries WHERE bet_id = ANY($1) ORDER BY placed_at ASC, id ASC`
	return r.listEntries(ctx, query, betIDs)
}

func (r *BetRepository) listEntries(ctx context.Context, query string, arg any) ([]*model.BetEntry, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.BetEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bet entries: %w", err)
	}
	return entries, nil
}

// GetEntryByUser retrieves the user's entry on a bet.
func (r *BetRepository) GetEntryByUser(ctx context.Context, betID, userID uuid.UUID) (*model.BetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM bet_entries WHERE bet_id = $1 AND user_id = $2`

	e, err := scanEntry(r.db.QueryRow(ctx, query, betID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get bet entry: %w", err)
	}
	return e, nil
}

// SettleEntry records an entry's payout.
func (r *BetRepository) SettleEntry(ctx context.Context, id uuid.UUID, winnings int64) error {
	result, err := r.db.Exec(ctx, `UPDATE bet_entries SET winnings = $2, settled = TRUE WHERE id = $1`, id, winnings)
	if err != nil {
		return fmt.Errorf("failed to settle bet entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func statusStrings(statuses []model.BetStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
