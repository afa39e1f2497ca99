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

const intentionColumns = `i.id, i.author_id, i.content, i.type, i.status, i.target_date, i.is_anonymous, i.admin_response, i.created_at,
	u.first_name, u.last_name`

const intentionFrom = ` FROM intentions i JOIN users u ON u.id = i.author_id `

// IntentionRepository persists prayer intentions.
type IntentionRepository struct {
	db DBTX
}

func scanIntention(row pgx.Row) (*model.Intention, error) {
	var in model.Intention
	err := row.Scan(
		&in.ID,
		&in.AuthorID,
		&in.Content,
		&in.Type,
		&in.Status,
		&in.TargetDate,
		&in.IsAnonymous,
		&in.AdminResponse,
		&in.CreatedAt,
		&in.AuthorFirstName,
		&in.AuthorLastName,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// Create stores a PENDING intention.
func (r *IntentionRepository) Create(ctx context.Context, in *model.Intention) (*model.Intention, error) {
	const insert = `
		INSERT INTO intentions (author_id, content, type, target_date, is_anonymous)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, insert,
		in.AuthorID, in.Content, string(in.Type), model.DateOf(in.TargetDate), in.IsAnonymous,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create intention: %w", err)
	}
	return r.Get(ctx, id)
}

// Get retrieves an intention with its author's name.
func (r *IntentionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Intention, error) {
	in, err := scanIntention(r.db.QueryRow(ctx, `SELECT `+intentionColumns+intentionFrom+`WHERE i.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentionNotFound
		}
		return nil, fmt.Errorf("failed to get intention: %w", err)
	}
	return in, nil
}

// ListByAuthor returns a user's intentions, newest first.
func (r *IntentionRepository) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]*model.Intention, error) {
	query := `SELECT ` + intentionColumns + intentionFrom + `WHERE i.author_id = $1 ORDER BY i.created_at DESC, i.id DESC`
	return r.list(ctx, query, authorID)
}

// ListByStatus returns intentions in status ordered by target date.
func (r *IntentionRepository) ListByStatus(ctx context.Context, status model.IntentionStatus) ([]*model.Intention, error) {
	query := `SELECT ` + intentionColumns + intentionFrom + `WHERE i.status = $1 ORDER BY i.target_date ASC, i.created_at ASC`
	return r.list(ctx, query, string(status))
}

// ListApprovedOn returns the APPROVED intentions targeting date.
func (r *IntentionRepository) ListApprovedOn(ctx context.Context, date time.Time) ([]*model.Intention, error) {
	query := `SELECT ` + intentionColumns + intentionFrom + `WHERE i.status = 'APPROVED' AND i.target_date = $1 ORDER BY i.created_at ASC`
	return r.list(ctx, query, model.DateOf(date))
}

func (r *IntentionRepository) list(ctx context.Context, query string, arg any) ([]*model.Intention, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list intentions: %w", err)
	}
	defer rows.Close()

	var list []*model.Intention
	for rows.Next() {
		in, err := scanIntention(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intention: %w", err)
		}
		list = append(list, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating intentions: %w", err)
	}
	return list, nil
}

// Review sets an intention's status and admin response.
func (r *IntentionRepository) Review(ctx context.Context, id uuid.UUID, status model.IntentionStatus, response *string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE intentions SET status = $2, admin_response = $3 WHERE id = $1`,
		id, string(status), response,
	)
	if err != nil {
		return fmt.Errorf("failed to review intention: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrIntentionNotFound
	}
	return nil
}

// ArchiveUpTo marks APPROVED intentions with target_date on or before date
// as COMPLETED and returns how many changed.
func (r *IntentionRepository) ArchiveUpTo(ctx context.Context, date time.Time) (int64, error) {
	const query = `
		UPDATE intentions
		SET status = 'COMPLETED'
		WHERE status = 'APPROVED' AND target_date <= $1
	`

	result, err := r.db.Exec(ctx, query, model.DateOf(date))
	if err != nil {
		return 0, fmt.Errorf("failed to archive intentions: %w", err)
	}
	return result.RowsAffected(), nil
}
