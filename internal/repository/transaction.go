package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"parish-portal/internal/model"
)

const txColumns = `id, user_id, amount, type, description, source_id, created_by, created_at`

// TransactionRepository persists the append-only points ledger.
type TransactionRepository struct {
	db DBTX
}

func scanTransaction(row pgx.Row) (*model.PointsTransaction, error) {
	var tx model.PointsTransaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.SourceID,
		&tx.CreatedBy,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a ledger row. ID and CreatedAt are assigned by the database.
func (r *TransactionRepository) Create(ctx context.Context, tx *model.PointsTransaction) (*model.PointsTransaction, error) {
	query := `
		INSERT INTO points_transactions (user_id, amount, type, description, source_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + txColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query,
		tx.UserID, tx.Amount, string(tx.Type), tx.Description, tx.SourceID, tx.CreatedBy,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

// GetByUserID retrieves a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PointsTransaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM points_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.PointsTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SumByUser returns the sum of all ledger amounts for a user.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM points_transactions WHERE user_id = $1`

	var sum int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// CountBySource counts ledger rows of a type linked to a source entity for a user.
func (r *TransactionRepository) CountBySource(ctx context.Context, userID, sourceID uuid.UUID, txType model.TransactionType) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM points_transactions
		WHERE user_id = $1 AND source_id = $2 AND type = $3
	`

	var n int
	if err := r.db.QueryRow(ctx, query, userID, sourceID, string(txType)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
